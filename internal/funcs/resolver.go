// Package funcs provides client progression resolution.
package funcs

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/BTreeMap/FunnelPipe/internal/store"
)

// StageResolver finds the single active progression a stage operation should
// act upon. A client can be simultaneously active in the same funnel across
// two different channels (e.g. WhatsApp and Instagram); without the channel
// filter an operation could silently mutate the wrong channel's conversation.
type StageResolver struct {
	store store.ProgressionStore
}

// NewStageResolver creates a resolver backed by the given progression store.
func NewStageResolver(st store.ProgressionStore) *StageResolver {
	return &StageResolver{store: st}
}

// Resolve returns the progression to act upon for (clientID, funnelID,
// channelID). Matching is ordered, first match wins:
//
//  1. Load all ACTIVE progressions for the client, newest first.
//  2. If channelID is given, return the progression matching both funnel and
//     channel.
//  3. Otherwise (or when step 2 found nothing), return the most recent
//     progression matching the funnel alone.
//  4. Nothing matched: return models.ErrProgressionNotFound.
//
// TODO: when nothing matches, create an initial progression at the funnel's
// first stage instead of failing (requires picking a funnel-channel pairing
// for clients arriving outside any known channel).
func (r *StageResolver) Resolve(ctx context.Context, clientID, funnelID, channelID string) (*models.ClientProgression, error) {
	progs, err := r.store.ListActiveProgressions(clientID)
	if err != nil {
		slog.Error("StageResolver.Resolve: failed to list progressions", "error", err, "clientID", clientID)
		return nil, err
	}

	if channelID != "" {
		for i := range progs {
			if progs[i].FunnelID == funnelID && progs[i].ChannelID == channelID {
				slog.Debug("StageResolver.Resolve: matched funnel and channel",
					"clientID", clientID, "funnelID", funnelID, "channelID", channelID,
					"progressionID", progs[i].ID)
				return &progs[i], nil
			}
		}
	}

	for i := range progs {
		if progs[i].FunnelID == funnelID {
			slog.Debug("StageResolver.Resolve: matched funnel only",
				"clientID", clientID, "funnelID", funnelID, "progressionID", progs[i].ID)
			return &progs[i], nil
		}
	}

	slog.Debug("StageResolver.Resolve: no active progression found",
		"clientID", clientID, "funnelID", funnelID, "channelID", channelID)
	return nil, models.ErrProgressionNotFound
}
