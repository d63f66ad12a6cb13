// Package api provides HTTP handlers for FunnelPipe endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// functionsHandler handles POST /functions (create) and GET /functions (list).
func (s *Server) functionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodPost:
		s.createFunctionHandler(w, r)
	case http.MethodGet:
		s.listFunctionsHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.functionsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createFunctionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.createFunctionHandler: processing create request", "path", r.URL.Path)

	var req models.CreateFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createFunctionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.createFunctionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	var def *models.FunctionDefinition
	var err error
	switch req.Kind {
	case models.FunctionKindChangeStage:
		def, err = s.catalog.CreateChangeStageFunction(r.Context(), req.CompanyID, req.StageID)
	case models.FunctionKindGoogleCalendar:
		def, err = s.catalog.CreateCalendarFunction(r.Context(), req.CompanyID, req.Action, req.CalendarID)
	case models.FunctionKindGoogleSheet:
		def, err = s.catalog.CreateSheetFunction(r.Context(), req.CompanyID, req.SheetURL, req.Fields)
	}
	if err != nil {
		if errors.Is(err, models.ErrExternalNameExhausted) {
			slog.Error("Server.createFunctionHandler: failed to create function", "error", err, "companyID", req.CompanyID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create function"))
			return
		}
		// Every other creation failure is a configuration problem in the request.
		slog.Warn("Server.createFunctionHandler: invalid function configuration", "error", err, "companyID", req.CompanyID, "kind", req.Kind)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.createFunctionHandler: function created",
		"id", def.ID, "companyID", def.CompanyID, "kind", def.Kind, "externalName", def.ExternalName)
	writeJSONResponse(w, http.StatusCreated, models.Created(def))
}

func (s *Server) listFunctionsHandler(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("company_id query parameter is required"))
		return
	}

	defs, err := s.st.ListFunctionsByCompany(companyID)
	if err != nil {
		slog.Error("Server.listFunctionsHandler: failed to list functions", "error", err, "companyID", companyID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list functions"))
		return
	}
	if defs == nil {
		defs = []models.FunctionDefinition{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(defs))
}

// functionByIDHandler handles DELETE /functions/{id}.
func (s *Server) functionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		slog.Warn("Server.functionByIDHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/functions/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("function id is required"))
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("company_id query parameter is required"))
		return
	}

	if err := s.st.DeleteFunction(id, companyID); err != nil {
		if errors.Is(err, models.ErrFunctionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Function not found"))
			return
		}
		slog.Error("Server.functionByIDHandler: failed to delete function", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete function"))
		return
	}

	slog.Info("Server.functionByIDHandler: function deleted", "id", id, "companyID", companyID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Function deleted", nil))
}

// toolsHandler handles GET /tools, the LLM tool-declaration export.
func (s *Server) toolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.toolsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("company_id query parameter is required"))
		return
	}

	tools, err := s.catalog.CompanyTools(r.Context(), companyID)
	if err != nil {
		slog.Error("Server.toolsHandler: failed to render tools", "error", err, "companyID", companyID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to render tool list"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(tools))
}

// executeHandler handles POST /functions/execute.
func (s *Server) executeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.executeHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ExecuteFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.executeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.executeHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.dispatcher.ExecuteFunction(r.Context(), req.FunctionID, req.Arguments, req.Context)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrFunctionNotFound):
			writeJSONResponse(w, http.StatusNotFound, models.Error("Function not found"))
		case errors.Is(err, models.ErrCompanyMismatch):
			// The caller learns nothing beyond "not yours".
			writeJSONResponse(w, http.StatusForbidden, models.Error("Function belongs to a different company"))
		default:
			slog.Error("Server.executeHandler: execution failed", "error", err, "functionID", req.FunctionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to execute function"))
		}
		return
	}

	// Domain failures travel inside the result with HTTP 200; the agent loop
	// feeds them back to the LLM rather than treating them as transport errors.
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// closeConversationHandler handles POST /conversations/close.
func (s *Server) closeConversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ConversationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.closeConversationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.dispatcher.CloseConversation(r.Context(), req.Context)
	if err != nil {
		slog.Error("Server.closeConversationHandler: close failed", "error", err, "clientID", req.Context.ClientID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to close conversation"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// assignUserHandler handles POST /conversations/assign.
func (s *Server) assignUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ConversationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.assignUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.dispatcher.AssignUser(r.Context(), req.Context, req.UserID)
	if err != nil {
		slog.Error("Server.assignUserHandler: assignment failed", "error", err, "clientID", req.Context.ClientID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to assign user"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
