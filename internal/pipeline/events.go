// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/navarchus/internal/models"
)

// NATS subjects for the replay processing pipeline. All subjects fall
// under the replay.> and render.> wildcards covered by the pipeline
// stream, so they are provisioned once at startup.
const (
	// TopicReplayUploaded carries freshly accepted uploads into the
	// ingest worker.
	TopicReplayUploaded = "replay.uploaded"

	// TopicReplayPersisted announces a persisted match. Consumed by
	// the websocket fanout; render jobs are published alongside it by
	// the ingest worker, which knows the persist disposition.
	TopicReplayPersisted = "replay.persisted"

	// TopicReplayFailed announces an upload that could not be decoded.
	TopicReplayFailed = "replay.failed"

	// TopicRenderRequested carries minimap render jobs.
	TopicRenderRequested = "render.requested"

	// TopicRenderCompleted announces a finished video.
	TopicRenderCompleted = "render.completed"
)

// ValidationError reports a missing or malformed event field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Event is implemented by every pipeline event type.
type Event interface {
	ID() string
	Topic() string
	Validate() error
}

// Envelope carries the identity fields shared by all pipeline events.
type Envelope struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEnvelope() Envelope {
	return Envelope{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
	}
}

// ID returns the unique event id, used as the NATS message id for
// publish deduplication.
func (e Envelope) ID() string { return e.EventID }

// ReplayUploaded is published by the upload boundary once the raw
// replay blob is stored. ReplayKey addresses the blob store.
type ReplayUploaded struct {
	Envelope

	ReplayKey  string    `json:"replay_key"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewReplayUploaded builds the upload event with a fresh envelope.
func NewReplayUploaded(replayKey, fileName string, fileSize int64, uploadedBy string, uploadedAt time.Time) *ReplayUploaded {
	return &ReplayUploaded{
		Envelope:   newEnvelope(),
		ReplayKey:  replayKey,
		FileName:   fileName,
		FileSize:   fileSize,
		UploadedBy: uploadedBy,
		UploadedAt: uploadedAt,
	}
}

// Topic returns the NATS subject for this event.
func (e *ReplayUploaded) Topic() string { return TopicReplayUploaded }

// Validate checks required fields.
func (e *ReplayUploaded) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.ReplayKey == "" {
		return &ValidationError{Field: "replay_key", Message: "required"}
	}
	if e.FileName == "" {
		return &ValidationError{Field: "file_name", Message: "required"}
	}
	if e.FileSize <= 0 {
		return &ValidationError{Field: "file_size", Message: "must be positive"}
	}
	return nil
}

// ReplayPersisted announces that an upload landed in the match store.
type ReplayPersisted struct {
	Envelope

	ArenaUniqueID int64  `json:"arena_unique_id"`
	GameType      string `json:"game_type"`
	Disposition   string `json:"disposition"`
	DualFlipped   bool   `json:"dual_flipped"`
	StatsWritten  bool   `json:"stats_written"`
	UploadedBy    string `json:"uploaded_by,omitempty"`
}

// Topic returns the NATS subject for this event.
func (e *ReplayPersisted) Topic() string { return TopicReplayPersisted }

// Validate checks required fields.
func (e *ReplayPersisted) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.ArenaUniqueID == 0 {
		return &ValidationError{Field: "arena_unique_id", Message: "required"}
	}
	if e.GameType == "" {
		return &ValidationError{Field: "game_type", Message: "required"}
	}
	return nil
}

// ReplayFailed announces an upload that could not be decoded. Kind
// follows the decode failure taxonomy recorded on the marker.
type ReplayFailed struct {
	Envelope

	ReplayKey string `json:"replay_key"`
	Kind      string `json:"kind"`
	Cause     string `json:"cause,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// Topic returns the NATS subject for this event.
func (e *ReplayFailed) Topic() string { return TopicReplayFailed }

// Validate checks required fields.
func (e *ReplayFailed) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.ReplayKey == "" {
		return &ValidationError{Field: "replay_key", Message: "required"}
	}
	if e.Kind == "" {
		return &ValidationError{Field: "kind", Message: "required"}
	}
	return nil
}

// RenderRequested is a minimap render job. ReplayKeys addresses the
// source replay blobs: one key for a single-perspective job, the green
// perspective followed by the red for a dual job.
type RenderRequested struct {
	Envelope

	ArenaUniqueID int64    `json:"arena_unique_id"`
	GameType      string   `json:"game_type"`
	Dual          bool     `json:"dual"`
	ReplayKeys    []string `json:"replay_keys"`
}

// Topic returns the NATS subject for this event.
func (e *RenderRequested) Topic() string { return TopicRenderRequested }

// Validate checks required fields and key arity.
func (e *RenderRequested) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.ArenaUniqueID == 0 {
		return &ValidationError{Field: "arena_unique_id", Message: "required"}
	}
	if e.GameType == "" {
		return &ValidationError{Field: "game_type", Message: "required"}
	}
	want := 1
	if e.Dual {
		want = 2
	}
	if len(e.ReplayKeys) != want {
		return &ValidationError{
			Field:   "replay_keys",
			Message: fmt.Sprintf("want %d keys, got %d", want, len(e.ReplayKeys)),
		}
	}
	for _, key := range e.ReplayKeys {
		if key == "" {
			return &ValidationError{Field: "replay_keys", Message: "empty key"}
		}
	}
	return nil
}

// RenderCompleted announces a finished minimap video.
type RenderCompleted struct {
	Envelope

	ArenaUniqueID int64  `json:"arena_unique_id"`
	GameType      string `json:"game_type"`
	Dual          bool   `json:"dual"`
	VideoKey      string `json:"video_key"`
}

// Topic returns the NATS subject for this event.
func (e *RenderCompleted) Topic() string { return TopicRenderCompleted }

// Validate checks required fields.
func (e *RenderCompleted) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.ArenaUniqueID == 0 {
		return &ValidationError{Field: "arena_unique_id", Message: "required"}
	}
	if e.VideoKey == "" {
		return &ValidationError{Field: "video_key", Message: "required"}
	}
	return nil
}

// MarshalEvent validates and encodes an event for publishing.
func MarshalEvent(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// unmarshalEvent decodes and validates an event payload in place.
func unmarshalEvent(data []byte, e Event) error {
	if err := json.Unmarshal(data, e); err != nil {
		return fmt.Errorf("unmarshal %s event: %w", e.Topic(), err)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate %s event: %w", e.Topic(), err)
	}
	return nil
}

// BuildRenderRequest shapes the render job for a persisted match. The
// green perspective is the match's pinned ally side, which is the
// first uploader's replay; a dual job adds the earliest upload from
// the opposing team as the red perspective. Matches flagged dual but
// missing an opposing upload degrade to a single-perspective job.
func BuildRenderRequest(match *models.MatchRecord, uploads []models.UploadRecord) (*RenderRequested, error) {
	if match == nil {
		return nil, fmt.Errorf("build render request: nil match")
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("build render request: no uploads for arena %d", match.ArenaUniqueID)
	}

	green := uploads[0]
	for _, up := range uploads {
		if up.PlayerID == match.AllyPerspectivePlayerID {
			green = up
			break
		}
	}

	req := &RenderRequested{
		Envelope:      newEnvelope(),
		ArenaUniqueID: match.ArenaUniqueID,
		GameType:      match.GameType,
		ReplayKeys:    []string{green.ReplayKey},
	}

	if match.HasDualReplay {
		for _, up := range uploads {
			if up.Team != green.Team {
				req.Dual = true
				req.ReplayKeys = append(req.ReplayKeys, up.ReplayKey)
				break
			}
		}
	}

	return req, nil
}
