// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package blobstore persists replay uploads and rendered videos on the
// local filesystem using the replays/{uploader}/{file} and
// videos/{arenaUniqueID}/{single|dual}.mp4 object layout. Blobs are
// optionally compressed with zstd at rest, and downloads are authorized
// through short-lived HMAC-signed tokens instead of exposed paths.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
)

var (
	// ErrNotFound is returned when no blob exists under the requested key.
	ErrNotFound = fmt.Errorf("blob not found")

	// ErrInvalidKey is returned for keys that are empty, non-canonical,
	// or would escape the blob root.
	ErrInvalidKey = fmt.Errorf("invalid blob key")
)

// compressedSuffix marks blobs written with zstd compression enabled.
// Reads probe both variants so a store survives the flag being toggled.
const compressedSuffix = ".zst"

// Store is a filesystem-backed object store rooted at a single directory.
// Keys are slash-separated relative paths, never filesystem paths.
type Store struct {
	cfg  config.BlobStoreConfig
	root string
}

// Open prepares the blob root directory and returns a Store over it.
func Open(cfg config.BlobStoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("blob store path is required but was empty")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}

	return &Store{cfg: cfg, root: cfg.Path}, nil
}

// Root exposes the directory backing the store.
func (s *Store) Root() string {
	return s.root
}

// ReplayKey returns the canonical object key for an uploaded replay file.
func ReplayKey(uploadedBy, filename string) string {
	return fmt.Sprintf("replays/%s/%s", uploadedBy, filename)
}

// VideoKey returns the canonical object key for a rendered match video.
func VideoKey(arenaUniqueID int64, dual bool) string {
	name := "single.mp4"
	if dual {
		name = "dual.mp4"
	}
	return fmt.Sprintf("videos/%d/%s", arenaUniqueID, name)
}

// Put streams a blob to disk under the given key, replacing any previous
// content. The write lands in a temp file and is renamed into place so
// readers never observe a partial blob. It returns the number of bytes
// written to disk, after compression when enabled.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	final, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if s.cfg.Compress {
		final += compressedSuffix
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return 0, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), ".put-*")
	if err != nil {
		return 0, fmt.Errorf("create blob file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	counted := &countingWriter{w: tmp}
	var dst io.Writer = counted
	var enc *zstd.Encoder
	if s.cfg.Compress {
		enc, err = zstd.NewWriter(counted)
		if err != nil {
			return 0, fmt.Errorf("open zstd writer: %w", err)
		}
		dst = enc
	}

	if _, err := io.Copy(dst, r); err != nil {
		return 0, fmt.Errorf("write blob %s: %w", key, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return 0, fmt.Errorf("flush zstd writer: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return 0, fmt.Errorf("commit blob %s: %w", key, err)
	}

	metrics.RecordBlobWrite(blobKind(key), counted.n)
	logging.Debug().
		Str("component", "blobstore").
		Str("key", key).
		Int64("stored_bytes", counted.n).
		Bool("compressed", s.cfg.Compress).
		Msg("Blob stored")

	return counted.n, nil
}

// Get opens a blob for reading. Compressed blobs are decompressed
// transparently, so callers always see the original bytes.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}

	f, err = os.Open(p + compressedSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd reader: %w", err)
	}

	return &decompressingReader{dec: dec, f: f}, nil
}

// Exists reports whether a blob is stored under the key, in either the
// plain or compressed variant.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	for _, candidate := range []string{p, p + compressedSuffix} {
		if _, err := os.Stat(candidate); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat blob %s: %w", key, err)
		}
	}
	return false, nil
}

// StoredSize reports the on-disk size of a blob, after compression.
func (s *Store) StoredSize(ctx context.Context, key string) (int64, error) {
	p, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	for _, candidate := range []string{p, p + compressedSuffix} {
		info, err := os.Stat(candidate)
		if err == nil {
			return info.Size(), nil
		}
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("stat blob %s: %w", key, err)
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Delete removes a blob in whichever variant it was stored.
func (s *Store) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	removed := false
	for _, candidate := range []string{p, p + compressedSuffix} {
		switch err := os.Remove(candidate); {
		case err == nil:
			removed = true
		case !os.IsNotExist(err):
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Healthy reports whether the blob root is still a usable directory.
func (s *Store) Healthy(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root %s is not a directory", s.root)
	}
	return nil
}

// resolve maps a key to an absolute path under the root. Keys must be
// canonical slash paths: no leading slash, no ".." or "." elements, no
// backslashes. Anything else is rejected before it touches the
// filesystem.
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func blobKind(key string) string {
	switch {
	case strings.HasPrefix(key, "replays/"):
		return "replay"
	case strings.HasPrefix(key, "videos/"):
		return "video"
	default:
		return "other"
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// decompressingReader closes both the zstd decoder and the file behind it.
type decompressingReader struct {
	dec *zstd.Decoder
	f   *os.File
}

func (r *decompressingReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *decompressingReader) Close() error {
	r.dec.Close()
	return r.f.Close()
}
