// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package wows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/navarchus/internal/cache"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// ErrNotFound reports that the encyclopedia has no entry for the
// requested ship, account, or clan. Callers fall back to placeholder
// values instead of failing.
var ErrNotFound = errors.New("wows: not found")

// maxErrorBodySize limits the response body read for error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// Encyclopedia is the lookup surface of the public WoWS API used by
// the pipeline. Implemented by Client and BreakerClient; mock
// implementations satisfy it in tests.
//
// All methods are safe for concurrent use and honor context
// cancellation. A missing entry is reported as ErrNotFound, never as
// a zero value with nil error.
type Encyclopedia interface {
	ShipName(ctx context.Context, shipID int64) (string, error)
	AccountID(ctx context.Context, nickname string) (int64, error)
	ClanTag(ctx context.Context, nickname string) (string, error)
}

// Client talks to the public WoWS encyclopedia API.
//
// Lookups are cached in-process with a configurable TTL, including
// negative results for account and clan searches so absent players do
// not trigger repeated API calls. Outbound requests pass through a
// token-bucket rate limiter and retry on HTTP 429 with exponential
// backoff.
type Client struct {
	baseURL        string
	appID          string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration

	shipNames  *cache.Cache // ship_id -> name
	accountIDs *cache.Cache // nickname -> account_id (0 = known absent)
	clanTags   *cache.Cache // account_id -> tag ("" = no clan)
}

// NewClient creates an encyclopedia client from configuration.
func NewClient(cfg *config.WOWSConfig) *Client {
	burst := int(cfg.RequestsPerSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: cfg.BaseURL,
		appID:   cfg.ApplicationID,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,

		shipNames:  cache.New(cfg.CacheTTL),
		accountIDs: cache.New(cfg.CacheTTL),
		clanTags:   cache.New(cfg.CacheTTL),
	}
}

// apiEnvelope is the common wrapper of every WoWS API response.
type apiEnvelope struct {
	Status string          `json:"status"`
	Error  *apiError       `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

// ShipName resolves a ship id to its English display name.
func (c *Client) ShipName(ctx context.Context, shipID int64) (string, error) {
	key := strconv.FormatInt(shipID, 10)
	if cached, ok := c.shipNames.Get(key); ok {
		metrics.RecordEncyclopediaLookup("ship", "cached")
		return cached.(string), nil
	}

	params := url.Values{}
	params.Set("ship_id", key)
	params.Set("fields", "name")
	params.Set("language", "en")

	data, err := c.makeRequest(ctx, "/wows/encyclopedia/ships/", params)
	if err != nil {
		metrics.RecordEncyclopediaLookup("ship", "error")
		return "", err
	}

	var ships map[string]*struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &ships); err != nil {
		metrics.RecordEncyclopediaLookup("ship", "error")
		return "", fmt.Errorf("wows: parse ships response: %w", err)
	}

	entry := ships[key]
	if entry == nil || entry.Name == "" {
		metrics.RecordEncyclopediaLookup("ship", "miss")
		return "", ErrNotFound
	}

	c.shipNames.Set(key, entry.Name)
	metrics.RecordEncyclopediaLookup("ship", "hit")
	return entry.Name, nil
}

// AccountID resolves a player nickname to an account id. An exact
// nickname match is preferred; otherwise the first search result is
// used. Absence is cached so repeated lookups of unknown players stay
// local.
func (c *Client) AccountID(ctx context.Context, nickname string) (int64, error) {
	if cached, ok := c.accountIDs.Get(nickname); ok {
		metrics.RecordEncyclopediaLookup("account", "cached")
		id := cached.(int64)
		if id == 0 {
			return 0, ErrNotFound
		}
		return id, nil
	}

	params := url.Values{}
	params.Set("search", nickname)

	data, err := c.makeRequest(ctx, "/wows/account/list/", params)
	if err != nil {
		metrics.RecordEncyclopediaLookup("account", "error")
		return 0, err
	}

	var players []struct {
		Nickname  string `json:"nickname"`
		AccountID int64  `json:"account_id"`
	}
	if err := json.Unmarshal(data, &players); err != nil {
		metrics.RecordEncyclopediaLookup("account", "error")
		return 0, fmt.Errorf("wows: parse account list response: %w", err)
	}

	if len(players) == 0 {
		c.accountIDs.Set(nickname, int64(0))
		metrics.RecordEncyclopediaLookup("account", "miss")
		return 0, ErrNotFound
	}

	accountID := players[0].AccountID
	for _, p := range players {
		if p.Nickname == nickname {
			accountID = p.AccountID
			break
		}
	}

	c.accountIDs.Set(nickname, accountID)
	metrics.RecordEncyclopediaLookup("account", "hit")
	return accountID, nil
}

// ClanTag resolves a player nickname to their clan tag. Players
// without a clan report ErrNotFound, cached per account id.
func (c *Client) ClanTag(ctx context.Context, nickname string) (string, error) {
	accountID, err := c.AccountID(ctx, nickname)
	if err != nil {
		return "", err
	}

	accountKey := strconv.FormatInt(accountID, 10)
	if cached, ok := c.clanTags.Get(accountKey); ok {
		metrics.RecordEncyclopediaLookup("clan", "cached")
		tag := cached.(string)
		if tag == "" {
			return "", ErrNotFound
		}
		return tag, nil
	}

	clanID, err := c.clanIDForAccount(ctx, accountKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.clanTags.Set(accountKey, "")
			metrics.RecordEncyclopediaLookup("clan", "miss")
		} else {
			metrics.RecordEncyclopediaLookup("clan", "error")
		}
		return "", err
	}

	tag, err := c.clanTagByID(ctx, clanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.clanTags.Set(accountKey, "")
			metrics.RecordEncyclopediaLookup("clan", "miss")
		} else {
			metrics.RecordEncyclopediaLookup("clan", "error")
		}
		return "", err
	}

	c.clanTags.Set(accountKey, tag)
	metrics.RecordEncyclopediaLookup("clan", "hit")
	return tag, nil
}

// clanIDForAccount reads the clan membership of one account.
func (c *Client) clanIDForAccount(ctx context.Context, accountKey string) (int64, error) {
	params := url.Values{}
	params.Set("account_id", accountKey)

	data, err := c.makeRequest(ctx, "/wows/clans/accountinfo/", params)
	if err != nil {
		return 0, err
	}

	var accounts map[string]*struct {
		ClanID int64 `json:"clan_id"`
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return 0, fmt.Errorf("wows: parse clan accountinfo response: %w", err)
	}

	entry := accounts[accountKey]
	if entry == nil || entry.ClanID == 0 {
		return 0, ErrNotFound
	}
	return entry.ClanID, nil
}

// clanTagByID reads the tag of one clan.
func (c *Client) clanTagByID(ctx context.Context, clanID int64) (string, error) {
	key := strconv.FormatInt(clanID, 10)
	params := url.Values{}
	params.Set("clan_id", key)

	data, err := c.makeRequest(ctx, "/wows/clans/info/", params)
	if err != nil {
		return "", err
	}

	var clans map[string]*struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(data, &clans); err != nil {
		return "", fmt.Errorf("wows: parse clan info response: %w", err)
	}

	entry := clans[key]
	if entry == nil || entry.Tag == "" {
		return "", ErrNotFound
	}
	return entry.Tag, nil
}

// makeRequest performs a rate-limited GET against one API path and
// returns the data payload after validating the response envelope.
func (c *Client) makeRequest(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("application_id", c.appID)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("wows: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("wows: %s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("wows: decode %s response: %w", path, err)
	}

	if envelope.Status != "ok" {
		if envelope.Error != nil {
			return nil, fmt.Errorf("wows: %s returned %q (code %d)", path, envelope.Error.Message, envelope.Error.Code)
		}
		return nil, fmt.Errorf("wows: %s returned status %q", path, envelope.Status)
	}

	return envelope.Data, nil
}

// doRequestWithRateLimit performs an HTTP request with automatic HTTP
// 429 handling. Implements exponential backoff (1s, 2s, 4s, 8s, 16s)
// honoring Retry-After when present. The context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
