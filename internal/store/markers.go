// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
)

// PutDecodeFailure records that an upload could not be decoded. The
// marker is keyed by upload key, so re-uploading the same blob path
// overwrites the previous failure.
func (s *Store) PutDecodeFailure(ctx context.Context, marker models.DecodeFailureMarker) error {
	if marker.UploadKey == "" {
		return errors.New("store: decode failure marker without upload key")
	}
	if marker.FailedAt.IsZero() {
		marker.FailedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&marker)
	if err != nil {
		return fmt.Errorf("marshal failure marker: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMarker(marker.UploadKey), data)
	})
	if err != nil {
		return fmt.Errorf("put failure marker: %w", err)
	}

	logging.Warn().
		Str("component", "store").
		Str("upload_key", marker.UploadKey).
		Str("kind", marker.Kind).
		Str("uploaded_by", marker.UploadedBy).
		Msg("Decode failure recorded")
	return nil
}

// GetDecodeFailure loads the failure marker of one upload key.
func (s *Store) GetDecodeFailure(ctx context.Context, uploadKey string) (*models.DecodeFailureMarker, error) {
	var marker models.DecodeFailureMarker
	if err := s.getJSON(keyMarker(uploadKey), &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

// HasDecodeFailure reports whether an upload key is already marked as
// undecodable, letting the pipeline skip known-poison blobs.
func (s *Store) HasDecodeFailure(ctx context.Context, uploadKey string) (bool, error) {
	_, err := s.GetDecodeFailure(ctx, uploadKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListDecodeFailures returns up to limit failure markers in upload-key
// order. A zero limit returns them all.
func (s *Store) ListDecodeFailures(ctx context.Context, limit int) ([]models.DecodeFailureMarker, error) {
	var markers []models.DecodeFailureMarker

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(markerPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(markers) == limit {
				return nil
			}
			var marker models.DecodeFailureMarker
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &marker)
			})
			if err != nil {
				return fmt.Errorf("unmarshal failure marker: %w", err)
			}
			markers = append(markers, marker)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return markers, nil
}
