// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package notify posts match notifications to a Discord-compatible
// webhook when a rendered video lands for a game type worth
// announcing. It implements the pipeline's notification sink; the
// pipeline decides when, this package decides whether and what.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
)

// ErrWebhookStatus reports a non-2xx response from the webhook endpoint.
var ErrWebhookStatus = errors.New("notify: webhook request rejected")

// maxErrorBodySize limits the response body read for error reporting.
const maxErrorBodySize = 4 * 1024

// MatchSource loads the match record a notification describes.
// Implemented by the persistence layer.
type MatchSource interface {
	GetMatch(ctx context.Context, gameType string, arenaUniqueID int64) (*models.MatchRecord, error)
}

// URLSigner mints download tokens for blob keys. Implemented by the
// blob store signer; nil disables video links.
type URLSigner interface {
	Sign(blobKey string) (string, error)
}

// Discord delivers render-completed notifications to a webhook URL.
// A circuit breaker keeps a dead or rate-limited webhook from backing
// up the notify consumer.
type Discord struct {
	cfg       config.DiscordConfig
	matches   MatchSource
	signer    URLSigner
	client    *http.Client
	cb        *gobreaker.CircuitBreaker[interface{}]
	gameTypes map[string]struct{}
	baseURL   string
}

// NewDiscord creates the webhook sink. signer may be nil, in which
// case embeds carry no video download link.
func NewDiscord(cfg config.DiscordConfig, matches MatchSource, signer URLSigner) (*Discord, error) {
	if matches == nil {
		return nil, errors.New("notify: match source is nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	gameTypes := make(map[string]struct{}, len(cfg.NotifyGameTypes))
	for _, gt := range cfg.NotifyGameTypes {
		gameTypes[gt] = struct{}{}
	}

	const cbName = "discord-webhook"
	metrics.RecordBreakerState(cbName, 0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := from.String()
			toStr := to.String()
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] discord-webhook state transition")
			metrics.RecordBreakerTransition(name, fromStr, toStr)
			switch to {
			case gobreaker.StateClosed:
				metrics.RecordBreakerState(name, 0)
			case gobreaker.StateOpen:
				metrics.RecordBreakerState(name, 1)
			case gobreaker.StateHalfOpen:
				metrics.RecordBreakerState(name, 2)
			}
		},
	})

	return &Discord{
		cfg:       cfg,
		matches:   matches,
		signer:    signer,
		client:    &http.Client{Timeout: timeout},
		cb:        cb,
		gameTypes: gameTypes,
		baseURL:   strings.TrimRight(cfg.MatchBaseURL, "/"),
	}, nil
}

// NotifyRenderCompleted posts an embed for the finished video. Game
// types outside the configured list are skipped without error; the
// consumer treats any returned error as a dropped notification, never
// as grounds for redelivery.
func (d *Discord) NotifyRenderCompleted(ctx context.Context, event *pipeline.RenderCompleted) error {
	if d.cfg.WebhookURL == "" {
		return nil
	}
	if _, ok := d.gameTypes[event.GameType]; !ok {
		metrics.RecordNotification("skipped")
		return nil
	}

	match, err := d.matches.GetMatch(ctx, event.GameType, event.ArenaUniqueID)
	if err != nil {
		metrics.RecordNotification("failed")
		return fmt.Errorf("load match %d: %w", event.ArenaUniqueID, err)
	}

	embed := BuildEmbed(match, event.Dual, d.videoURL(event.VideoKey), d.matchURL(event.ArenaUniqueID))
	if err := d.post(ctx, webhookPayload{Embeds: []Embed{embed}}); err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordNotification("breaker_open")
		} else {
			metrics.RecordNotification("failed")
		}
		return err
	}

	metrics.RecordNotification("sent")
	logging.Info().
		Int64("arena_id", event.ArenaUniqueID).
		Str("game_type", event.GameType).
		Bool("dual", event.Dual).
		Msg("Discord notification sent")
	return nil
}

// videoURL returns a signed download link for the rendered video, or
// "" when no signer or public base URL is configured.
func (d *Discord) videoURL(videoKey string) string {
	if d.signer == nil || d.baseURL == "" || videoKey == "" {
		return ""
	}
	token, err := d.signer.Sign(videoKey)
	if err != nil {
		logging.Warn().Err(err).Str("video_key", videoKey).Msg("Signing video URL failed; embed will omit the link")
		return ""
	}
	return d.baseURL + "/blob/" + token
}

func (d *Discord) matchURL(arenaUniqueID int64) string {
	if d.baseURL == "" {
		return ""
	}
	return d.baseURL + "/match/" + strconv.FormatInt(arenaUniqueID, 10)
}

func (d *Discord) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = d.cb.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return nil, fmt.Errorf("build webhook request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := d.client.Do(req)
		if doErr != nil {
			return nil, fmt.Errorf("post webhook: %w", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			return nil, fmt.Errorf("%w: status %d: %s", ErrWebhookStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
		}
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	})
	return err
}
