// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package query

import (
	"context"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
)

// MatchDetail joins the MATCH record with its upload rows and signs
// download URLs for the stored replays and any rendered videos.
// Returns store.ErrNotFound when no table holds the arena id.
func (g *Gateway) MatchDetail(ctx context.Context, arenaID int64) (*models.MatchDetailResponse, error) {
	full, err := g.store.GetFullMatch(ctx, arenaID)
	if err != nil {
		return nil, err
	}

	resp := &models.MatchDetailResponse{
		Match:   full.Match,
		Replays: make([]models.ReplayDownload, 0, len(full.Uploads)),
	}
	for _, up := range full.Uploads {
		resp.Replays = append(resp.Replays, models.ReplayDownload{
			PlayerID:   up.PlayerID,
			PlayerName: up.PlayerName,
			Team:       up.Team,
			FileName:   up.FileName,
			UploadedAt: up.UploadedAt,
			URL:        g.signURL(up.ReplayKey),
		})
	}
	if full.Match.MP4Key != "" {
		resp.VideoURL = g.signURL(full.Match.MP4Key)
	}
	if full.Match.DualMP4Key != "" {
		resp.DualVideoURL = g.signURL(full.Match.DualMP4Key)
	}
	return resp, nil
}

// MatchStats loads the match's STATS record.
// Returns store.ErrNotFound when the match is unknown or its stats
// were never written.
func (g *Gateway) MatchStats(ctx context.Context, arenaID int64) (*models.StatsRecord, error) {
	match, err := g.store.FindMatch(ctx, arenaID)
	if err != nil {
		return nil, err
	}
	return g.store.GetStats(ctx, match.GameType, arenaID)
}

// signURL mints a download path for one blob key. Empty when no
// signer is configured or signing fails; the record itself is still
// served.
func (g *Gateway) signURL(blobKey string) string {
	if g.signer == nil || blobKey == "" {
		return ""
	}
	token, err := g.signer.Sign(blobKey)
	if err != nil {
		logging.Warn().Err(err).Str("blob_key", blobKey).Msg("Signing download URL failed")
		return ""
	}
	return "/blob/" + token
}
