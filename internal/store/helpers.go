package store

import (
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// marshalFunction serializes the schema and const data columns of a definition.
func marshalFunction(def models.FunctionDefinition) (parametersJSON, constDataJSON string, err error) {
	params, err := json.Marshal(def.Parameters)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal function parameters: %w", err)
	}
	constData, err := json.Marshal(def.ConstData)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal function const data: %w", err)
	}
	return string(params), string(constData), nil
}

// scanFunction scans a FunctionDefinition row.
func scanFunction(row rowScanner) (models.FunctionDefinition, error) {
	var def models.FunctionDefinition
	var parametersJSON, constDataJSON string
	err := row.Scan(
		&def.ID, &def.CompanyID, &def.Kind, &def.ExternalName,
		&parametersJSON, &constDataJSON, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal([]byte(parametersJSON), &def.Parameters); err != nil {
		return def, fmt.Errorf("failed to unmarshal function parameters: %w", err)
	}
	if err := json.Unmarshal([]byte(constDataJSON), &def.ConstData); err != nil {
		return def, fmt.Errorf("failed to unmarshal function const data: %w", err)
	}
	return def, nil
}

// scanProgression scans a ClientProgression row.
func scanProgression(row rowScanner) (models.ClientProgression, error) {
	var p models.ClientProgression
	var assignedUserID *string
	err := row.Scan(
		&p.ID, &p.ClientID, &p.StageID, &p.FunnelChannelID, &p.FunnelID, &p.ChannelID,
		&assignedUserID, &p.Status, &p.LastInteraction, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if assignedUserID != nil {
		p.AssignedUserID = *assignedUserID
	}
	return p, nil
}

// scanStage scans a Stage row.
func scanStage(row rowScanner) (models.Stage, error) {
	var s models.Stage
	var botID *string
	err := row.Scan(&s.ID, &s.CompanyID, &s.FunnelID, &s.Name, &s.Order, &botID)
	if err != nil {
		return s, err
	}
	if botID != nil {
		s.BotID = *botID
	}
	return s, nil
}
