// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/store"
)

// URLSigner mints download tokens for blob keys. Implemented by the
// blob store signer; nil leaves download URLs empty.
type URLSigner interface {
	Sign(blobKey string) (string, error)
}

// Gateway serves search and detail reads over the record store.
type Gateway struct {
	store  *store.Store
	signer URLSigner
	cfg    config.APIConfig
}

// New builds a Gateway. signer may be nil for deployments without a
// signing secret; responses then omit download URLs.
func New(s *store.Store, signer URLSigner, cfg config.APIConfig) *Gateway {
	return &Gateway{store: s, signer: signer, cfg: cfg}
}

// Search runs one filtered match search. The request must already be
// validated; Search normalizes the free-form fields itself.
func (g *Gateway) Search(ctx context.Context, req SearchRequest) (*models.SearchResponse, error) {
	started := time.Now()

	req.normalize()
	plan := req.plan()
	limit := g.pageSize(req.Limit)
	bound := req.beforeUnix()
	from := req.fromUnix()

	var (
		items []models.MatchSummary
		err   error
	)
	switch plan {
	case planShip:
		items, err = g.searchShipIndex(ctx, &req, limit, bound, from)
	case planPlayer:
		items, err = g.searchPlayerIndex(ctx, &req, limit, bound, from)
	case planClan:
		items, err = g.searchClanIndex(ctx, &req, limit, bound, from)
	default:
		items, err = g.searchListing(ctx, &req, limit, bound, from)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordSearch(plan, time.Since(started))

	resp := &models.SearchResponse{HasMore: len(items) > limit}
	if resp.HasMore {
		items = items[:limit]
	}
	resp.Items = items
	resp.Count = len(items)
	if resp.HasMore && len(items) > 0 {
		cursor := items[len(items)-1].UnixTime
		resp.CursorUnixTime = &cursor
	}

	logging.Debug().
		Str("plan", plan).
		Int("count", resp.Count).
		Bool("has_more", resp.HasMore).
		Dur("elapsed", time.Since(started)).
		Msg("Search served")
	return resp, nil
}

// pageSize resolves the effective page size from the request and the
// configured default and cap.
func (g *Gateway) pageSize(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = g.cfg.DefaultPageSize
	}
	if limit <= 0 {
		limit = 30
	}
	max := g.cfg.MaxPageSize
	if max <= 0 {
		max = 100
	}
	if limit > max {
		limit = max
	}
	return limit
}

// matchRef locates one match found by an index scan.
type matchRef struct {
	gameType string
	arenaID  int64
	unixTime int64
}

func (g *Gateway) searchShipIndex(ctx context.Context, req *SearchRequest, limit int, bound, from int64) ([]models.MatchSummary, error) {
	rows, err := g.store.ScanShipIndex(ctx, req.ShipName, store.IndexScan{GameType: req.GameType, BeforeUnix: bound})
	if err != nil {
		return nil, err
	}

	refs := make([]matchRef, 0, len(rows))
	for _, row := range rows {
		if !req.shipRowMatches(row) {
			continue
		}
		refs = append(refs, matchRef{row.GameType, row.ArenaUniqueID, row.UnixTime})
	}
	return g.loadMatches(ctx, req, planShip, limit, from, refs)
}

func (g *Gateway) searchPlayerIndex(ctx context.Context, req *SearchRequest, limit int, bound, from int64) ([]models.MatchSummary, error) {
	rows, err := g.store.ScanPlayerIndex(ctx, req.PlayerName, store.IndexScan{GameType: req.GameType, BeforeUnix: bound})
	if err != nil {
		return nil, err
	}

	refs := make([]matchRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, matchRef{row.GameType, row.ArenaUniqueID, row.UnixTime})
	}
	return g.loadMatches(ctx, req, planPlayer, limit, from, refs)
}

func (g *Gateway) searchClanIndex(ctx context.Context, req *SearchRequest, limit int, bound, from int64) ([]models.MatchSummary, error) {
	// Either tag drives the scan; the side constraint is enforced by
	// the main-clan-tag predicates afterwards.
	tag := req.AllyClanTag
	if tag == "" {
		tag = req.EnemyClanTag
	}

	rows, err := g.store.ScanClanIndex(ctx, tag, store.IndexScan{GameType: req.GameType, BeforeUnix: bound})
	if err != nil {
		return nil, err
	}

	refs := make([]matchRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, matchRef{row.GameType, row.ArenaUniqueID, row.UnixTime})
	}
	return g.loadMatches(ctx, req, planClan, limit, from, refs)
}

// loadMatches resolves index refs to match records, applies the
// remaining predicates, and collects up to limit+1 summaries so the
// caller can tell whether another page exists. refs arrive newest
// first, so the first ref below the lower bound ends the walk.
func (g *Gateway) loadMatches(ctx context.Context, req *SearchRequest, plan string, limit int, from int64, refs []matchRef) ([]models.MatchSummary, error) {
	var summaries []models.MatchSummary
	seen := make(map[int64]struct{}, len(refs))

	for _, ref := range refs {
		if from > 0 && ref.unixTime < from {
			break
		}
		if len(summaries) > limit {
			break
		}
		// A clan facing itself indexes the match once per team.
		if _, dup := seen[ref.arenaID]; dup {
			continue
		}
		seen[ref.arenaID] = struct{}{}

		match, err := g.store.GetMatch(ctx, ref.gameType, ref.arenaID)
		if errors.Is(err, store.ErrNotFound) {
			// Stale index row; the record is authoritative.
			logging.Warn().
				Int64("arena_unique_id", ref.arenaID).
				Str("game_type", ref.gameType).
				Msg("Index row without a match record; skipping")
			continue
		}
		if err != nil {
			return nil, err
		}

		if !req.matchPredicates(plan, match) {
			continue
		}
		summaries = append(summaries, match.Summary())
	}
	return summaries, nil
}

// searchListing pages the by-time listing (or the per-map listing)
// of every in-scope game type and merges newest first.
func (g *Gateway) searchListing(ctx context.Context, req *SearchRequest, limit int, bound, from int64) ([]models.MatchSummary, error) {
	gameTypes := models.GameTypes()
	if req.GameType != "" {
		gameTypes = []string{req.GameType}
	}

	var merged []models.MatchSummary
	for _, gameType := range gameTypes {
		summaries, _, err := g.store.ListMatches(ctx, gameType, store.ListOptions{
			MapID:      req.MapID,
			Limit:      limit + 1,
			BeforeUnix: bound,
		})
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			if from > 0 && s.UnixTime < from {
				// Rows are newest first within one game type.
				break
			}
			if !req.summaryPredicates(s) {
				continue
			}
			merged = append(merged, s)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].UnixTime > merged[j].UnixTime })
	if len(merged) > limit+1 {
		merged = merged[:limit+1]
	}
	return merged, nil
}

// summaryPredicates applies the filters a listing row can answer
// without loading the full match record.
func (r *SearchRequest) summaryPredicates(s models.MatchSummary) bool {
	if r.WinLoss != "" && s.WinLoss != r.WinLoss {
		return false
	}
	if r.AllyClanTag != "" && s.AllyMainClanTag != r.AllyClanTag {
		return false
	}
	if r.EnemyClanTag != "" && s.EnemyMainClanTag != r.EnemyClanTag {
		return false
	}
	return true
}
