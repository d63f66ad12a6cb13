// Package store provides storage backends for FunnelPipe.
//
// This file implements an in-memory store used in tests and for ephemeral
// development runs. It enforces the same external-name uniqueness contract as
// the SQL backends.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// InMemoryStore is a mutex-guarded in-memory implementation of Store.
type InMemoryStore struct {
	mu           sync.RWMutex
	functions    map[string]models.FunctionDefinition
	progressions map[string]models.ClientProgression
	stages       map[string]models.Stage
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		functions:    make(map[string]models.FunctionDefinition),
		progressions: make(map[string]models.ClientProgression),
		stages:       make(map[string]models.Stage),
	}
}

// GetFunction returns the definition with the given id, or nil if absent.
func (s *InMemoryStore) GetFunction(id string) (*models.FunctionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.functions[id]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

// ListFunctionsByCompany returns all definitions owned by a tenant.
func (s *InMemoryStore) ListFunctionsByCompany(companyID string) ([]models.FunctionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var defs []models.FunctionDefinition
	for _, def := range s.functions {
		if def.CompanyID == companyID {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].CreatedAt.After(defs[j].CreatedAt) })
	return defs, nil
}

// SaveFunction inserts or updates a definition, enforcing global external-name
// uniqueness like the SQL unique index does.
func (s *InMemoryStore) SaveFunction(def models.FunctionDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.functions {
		if id != def.ID && existing.ExternalName == def.ExternalName {
			return ErrExternalNameConflict
		}
	}
	s.functions[def.ID] = def
	return nil
}

// DeleteFunction removes a definition, scoped to the owning tenant.
func (s *InMemoryStore) DeleteFunction(id, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.functions[id]
	if !ok || def.CompanyID != companyID {
		return models.ErrFunctionNotFound
	}
	delete(s.functions, id)
	return nil
}

// ListActiveProgressions returns a client's ACTIVE progressions, newest first.
func (s *InMemoryStore) ListActiveProgressions(clientID string) ([]models.ClientProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var progs []models.ClientProgression
	for _, p := range s.progressions {
		if p.ClientID == clientID && p.Status == models.ProgressionStatusActive {
			progs = append(progs, p)
		}
	}
	sort.Slice(progs, func(i, j int) bool { return progs[i].CreatedAt.After(progs[j].CreatedAt) })
	return progs, nil
}

// GetProgression returns the progression with the given id, or nil if absent.
func (s *InMemoryStore) GetProgression(id string) (*models.ClientProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progressions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveProgression inserts or updates a progression record.
func (s *InMemoryStore) SaveProgression(p models.ClientProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressions[p.ID] = p
	return nil
}

// UpdateProgressionStage applies a targeted stage update keyed by progression id.
func (s *InMemoryStore) UpdateProgressionStage(progressionID, stageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progressions[progressionID]
	if !ok {
		return models.ErrProgressionNotFound
	}
	now := time.Now()
	p.StageID = stageID
	p.LastInteraction = now
	p.UpdatedAt = now
	s.progressions[progressionID] = p
	return nil
}

// UpdateAssignedUser sets or clears (empty userID) the assigned human agent.
func (s *InMemoryStore) UpdateAssignedUser(progressionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progressions[progressionID]
	if !ok {
		return models.ErrProgressionNotFound
	}
	p.AssignedUserID = userID
	p.UpdatedAt = time.Now()
	s.progressions[progressionID] = p
	return nil
}

// GetStage returns the stage with the given id, or nil if absent.
func (s *InMemoryStore) GetStage(stageID string) (*models.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stages[stageID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// GetFirstStage returns the funnel's lowest-order stage, or nil if absent.
func (s *InMemoryStore) GetFirstStage(funnelID string) (*models.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first *models.Stage
	for _, st := range s.stages {
		if st.FunnelID != funnelID {
			continue
		}
		stage := st
		if first == nil || stage.Order < first.Order {
			first = &stage
		}
	}
	return first, nil
}

// SaveStage inserts or updates a stage.
func (s *InMemoryStore) SaveStage(st models.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[st.ID] = st
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
