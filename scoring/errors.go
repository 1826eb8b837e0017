// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass buckets every failure the session can surface. The class decides
// the retry policy: validation and critical errors are never retried, network
// and timeout errors are retried automatically, api errors are retried only
// because submissions carry an idempotency key.
type ErrorClass string

const (
	ClassValidation ErrorClass = "validation"
	ClassNetwork    ErrorClass = "network"
	ClassTimeout    ErrorClass = "timeout"
	ClassAPI        ErrorClass = "api"
	ClassCritical   ErrorClass = "critical"
)

var (
	// ErrSubmissionInFlight is returned when a second ball is submitted
	// before the prior submission has resolved.
	ErrSubmissionInFlight = errors.New("a ball submission is already in flight")

	// ErrMatchComplete is returned when a draft is composed or submitted
	// after the match has ended.
	ErrMatchComplete = errors.New("match is complete; no further balls accepted")

	// ErrInningsComplete is returned when a delivery is submitted past the
	// overs limit.
	ErrInningsComplete = errors.New("innings is complete; no further balls accepted")

	// ErrOffline preempts network calls while the session is flagged offline.
	ErrOffline = errors.New("offline: submission not attempted")

	// ErrDraftBlocked is returned when the resolver is awaiting input and a
	// draft operation or submission is attempted.
	ErrDraftBlocked = errors.New("resolver is awaiting input")

	// ErrSessionClosed is returned by operations on a stopped session.
	ErrSessionClosed = errors.New("session is closed")
)

// SessionError carries the class, originating operation and user-facing
// message for a failure.
type SessionError struct {
	Class   ErrorClass
	Op      string
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Class, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may be replayed.
func (e *SessionError) Retryable() bool {
	switch e.Class {
	case ClassNetwork, ClassTimeout:
		return true
	case ClassAPI:
		// Ball submission is idempotent via the Idempotency-Key header, so
		// server errors are safe to replay.
		return true
	default:
		return false
	}
}

// UserMessage returns the text to surface in a notification.
func (e *SessionError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Class)
}

func newValidationError(op, msg string) *SessionError {
	return &SessionError{Class: ClassValidation, Op: op, Message: msg}
}

func newCriticalError(op string, err error) *SessionError {
	return &SessionError{Class: ClassCritical, Op: op, Err: err}
}

// classifyTransportError maps a transport-level failure from net/http into the
// taxonomy. Deadline errors become timeouts, everything else at this layer is
// a network failure.
func classifyTransportError(op string, err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SessionError{Class: ClassTimeout, Op: op, Err: err, Message: "the server did not respond in time"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SessionError{Class: ClassTimeout, Op: op, Err: err, Message: "the server did not respond in time"}
	}
	if errors.Is(err, context.Canceled) {
		return &SessionError{Class: ClassNetwork, Op: op, Err: err, Message: "request cancelled"}
	}
	return &SessionError{Class: ClassNetwork, Op: op, Err: err, Message: "could not reach the scoring server"}
}

// ClassOf extracts the error class, defaulting to critical for anything that
// did not come out of the taxonomy.
func ClassOf(err error) ErrorClass {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassCritical
}
