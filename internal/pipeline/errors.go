// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import "errors"

// ErrNilBroadcaster means a fanout handler was built without a
// broadcast target.
var ErrNilBroadcaster = errors.New("pipeline: broadcaster is nil")

// ErrNilNotificationSink means a notify handler was built without a
// delivery sink.
var ErrNilNotificationSink = errors.New("pipeline: notification sink is nil")

// ErrNilMirrorSink means a mirror handler was built without a
// projection target.
var ErrNilMirrorSink = errors.New("pipeline: mirror sink is nil")

// RetryableError marks a failure worth retrying: the store was busy,
// the blob store hiccuped, a deadline fired under load. The router's
// retry middleware backs off and redelivers until MaxRetries, after
// which the message lands on the poison queue.
type RetryableError struct {
	Message string
	Cause   error
}

// NewRetryableError wraps a transient failure.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{Message: message, Cause: cause}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// PermanentError marks a failure no retry can fix: malformed event
// JSON, an event referencing a match that cannot exist. The message
// still burns through the retry budget before reaching the poison
// queue, but the classification survives into the DLQ payload for
// operator triage.
type PermanentError struct {
	Message string
	Cause   error
}

// NewPermanentError wraps an unrecoverable failure.
func NewPermanentError(message string, cause error) *PermanentError {
	return &PermanentError{Message: message, Cause: cause}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// IsRetryableError reports whether err is or wraps a RetryableError.
func IsRetryableError(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// IsPermanentError reports whether err is or wraps a PermanentError.
func IsPermanentError(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
