// Package models defines funnel progression structures for FunnelPipe.
package models

import (
	"errors"
	"time"
)

// ProgressionStatus represents the lifecycle status of a client progression.
type ProgressionStatus string

const (
	// ProgressionStatusActive indicates the client is actively moving through the funnel.
	ProgressionStatusActive ProgressionStatus = "ACTIVE"
	// ProgressionStatusCompleted indicates the client finished the funnel.
	ProgressionStatusCompleted ProgressionStatus = "COMPLETED"
	// ProgressionStatusPaused indicates the progression is temporarily on hold.
	ProgressionStatusPaused ProgressionStatus = "PAUSED"
	// ProgressionStatusArchived indicates the progression was retired.
	ProgressionStatusArchived ProgressionStatus = "ARCHIVED"
)

// IsValidProgressionStatus checks if the given progression status is valid.
func IsValidProgressionStatus(s ProgressionStatus) bool {
	switch s {
	case ProgressionStatusActive, ProgressionStatusCompleted, ProgressionStatusPaused, ProgressionStatusArchived:
		return true
	default:
		return false
	}
}

// ErrProgressionNotFound indicates no active progression matched the resolver's lookup.
var ErrProgressionNotFound = errors.New("no active progression found for client")

// ClientProgression represents a client's position inside one funnel-channel
// pairing. A client may hold multiple concurrent ACTIVE progressions, at most
// one per distinct funnel-channel pairing.
//
// FunnelID and ChannelID are denormalized from the funnel-channel join so the
// resolver can disambiguate without an extra lookup.
type ClientProgression struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	StageID         string            `json:"stage_id"`
	FunnelChannelID string            `json:"funnel_channel_id"`
	FunnelID        string            `json:"funnel_id"`
	ChannelID       string            `json:"channel_id"`
	AssignedUserID  string            `json:"assigned_user_id,omitempty"`
	Status          ProgressionStatus `json:"status"`
	LastInteraction time.Time         `json:"last_interaction"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Stage is a named step in a funnel. Order 0 is the funnel's entry stage;
// closing a conversation moves the progression back to it.
type Stage struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	FunnelID  string `json:"funnel_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	BotID     string `json:"bot_id,omitempty"` // non-empty means bot-driven
}

// ClientMovedEvent is the payload broadcast to company-scoped listeners after
// every successful stage change.
type ClientMovedEvent struct {
	ClientID    string `json:"client_id"`
	FromStageID string `json:"from_stage_id"`
	ToStageID   string `json:"to_stage_id"`
	FunnelID    string `json:"funnel_id"`
	ChannelID   string `json:"channel_id,omitempty"`
}

// EventClientMoved is the realtime event name for stage-change broadcasts.
const EventClientMoved = "clientMoved"
