// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package blobstore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/metrics"
)

const defaultTokenTTL = 15 * time.Minute

// DownloadClaims binds a signed download token to a single blob key.
type DownloadClaims struct {
	BlobKey string `json:"blobKey"`
	jwt.RegisteredClaims
}

// Signer mints and verifies short-lived download tokens so the API can
// hand out self-contained blob URLs without keeping per-URL state. A
// token grants access to exactly one blob key until it expires. Signing
// uses HMAC-SHA256.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a Signer from the auth configuration.
func NewSigner(cfg config.AuthConfig) (*Signer, error) {
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("auth signing secret is required but was empty")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Signer{
		secret: []byte(cfg.SigningSecret),
		ttl:    ttl,
	}, nil
}

// Sign issues a download token for the given blob key.
func (s *Signer) Sign(blobKey string) (string, error) {
	if blobKey == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	claims := &DownloadClaims{
		BlobKey: blobKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}

	metrics.BlobTokensIssued.Inc()
	return signed, nil
}

// Verify validates a download token and returns the blob key it grants.
// Tokens signed with an unexpected algorithm are rejected before the
// signature is checked.
func (s *Signer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse download token: %w", err)
	}

	claims, ok := token.Claims.(*DownloadClaims)
	if !ok || !token.Valid || claims.BlobKey == "" {
		return "", fmt.Errorf("invalid download token claims")
	}

	return claims.BlobKey, nil
}
