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
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// submitBackoffBase is the first retry delay; each attempt doubles it.
	submitBackoffBase = 1 * time.Second

	// submitBackoffCap bounds a single retry delay.
	submitBackoffCap = 8 * time.Second

	// submitMaxAttempts is the number of automatic attempts before the
	// pipeline surfaces a manual-retry prompt.
	submitMaxAttempts = 3
)

// Pipeline serializes ball submissions to the backend. Only one submission may
// be in flight at a time — the in-flight guard is local, the server does not
// enforce it — and every draft travels with an idempotency key that survives
// retries, so a replay of a lost response cannot double-record a ball.
type Pipeline struct {
	api      *APIClient
	matchID  string
	notifier *Notifier
	metrics  *Metrics
	log      *logrus.Entry

	inFlight atomic.Bool

	// Online is the connectivity probe. When it reports false, submissions
	// short-circuit to an immediate offline notice instead of failing
	// downstream. Defaults to always-online.
	Online func() bool

	// OnManualRetry is invoked when the user taps the retry action on a
	// failed submission's notification. The session wires it back into its
	// event loop so the replay is serialized like any other submission.
	OnManualRetry func(payload *BallPayload, idempotencyKey string)

	backoffBase time.Duration
	maxAttempts int
}

// NewPipeline creates a submission pipeline for one match session.
func NewPipeline(api *APIClient, matchID string, notifier *Notifier, metrics *Metrics, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		api:         api,
		matchID:     matchID,
		notifier:    notifier,
		metrics:     metrics,
		log:         log.WithField("component", "pipeline"),
		Online:      func() bool { return true },
		backoffBase: submitBackoffBase,
		maxAttempts: submitMaxAttempts,
	}
}

// Busy reports whether a submission is currently in flight.
func (p *Pipeline) Busy() bool {
	return p.inFlight.Load()
}

// NewIdempotencyKey mints the per-draft key reused across every retry of the
// same draft.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// BuildPayload validates the identities and the draft and assembles the wire
// payload, splitting the entered runs into {total, batsman, extras} per the
// composer's derivation. No network call is made on validation failure.
func (p *Pipeline) BuildPayload(players CurrentPlayers, draft *BallDraft) (*BallPayload, error) {
	if err := ValidateSubmission(players, draft); err != nil {
		return nil, err
	}
	return &BallPayload{
		Innings:            draft.Innings,
		Over:               draft.Over,
		BallInOver:         draft.BallInOver,
		BallType:           draft.BallType,
		Runs:               draft.RunSplit(),
		IsWicket:           draft.IsWicket,
		WicketType:         draft.WicketType,
		DismissedPlayerID:  draft.DismissedPlayer.PlayerID,
		FielderID:          draft.Fielder.PlayerID,
		AssistantFielderID: draft.AssistantFielder.PlayerID,
		StrikerID:          players.Striker.PlayerID,
		NonStrikerID:       players.NonStriker.PlayerID,
		BowlerID:           players.Bowler.PlayerID,
		Commentary:         draft.Commentary,
	}, nil
}

// Submit POSTs the payload, retrying transient failures with exponential
// backoff. After the automatic attempts are exhausted it surfaces a
// manual-retry notification bound to the identical payload and key, and
// returns the final error.
func (p *Pipeline) Submit(ctx context.Context, payload *BallPayload, idempotencyKey string) (*BallResult, error) {
	if !p.Online() {
		p.notifier.Push(ClassNetwork, "You are offline. The ball was not sent.", nil)
		return nil, &SessionError{Class: ClassNetwork, Op: "submit", Err: ErrOffline, Message: "offline"}
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, &SessionError{Class: ClassValidation, Op: "submit", Err: ErrSubmissionInFlight, Message: "previous ball is still being recorded"}
	}
	defer p.inFlight.Store(false)

	var lastErr *SessionError
	delay := p.backoffBase
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res, err := p.api.SubmitBall(ctx, p.matchID, payload, idempotencyKey)
		if err == nil {
			p.metrics.IncSubmission("ok")
			if attempt > 1 {
				p.log.WithField("attempts", attempt).Info("ball recorded after retry")
			}
			return res, nil
		}

		if !errors.As(err, &lastErr) {
			lastErr = newCriticalError("submit", err)
		}
		p.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"class":   lastErr.Class,
		}).WithError(err).Warn("ball submission failed")

		if !autoRetryable(lastErr) {
			break
		}
		if attempt == p.maxAttempts {
			break
		}

		p.metrics.IncRetry()
		select {
		case <-ctx.Done():
			p.metrics.IncSubmission("cancelled")
			return nil, classifyTransportError("submit", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > submitBackoffCap {
			delay = submitBackoffCap
		}
	}

	p.metrics.IncSubmission(string(lastErr.Class))
	if lastErr.Retryable() && p.OnManualRetry != nil {
		replayPayload, replayKey := payload, idempotencyKey
		p.notifier.PushError(lastErr, func() {
			p.OnManualRetry(replayPayload, replayKey)
		})
	} else {
		p.notifier.PushError(lastErr, nil)
	}
	return nil, lastErr
}

// autoRetryable limits automatic retries to transient transport failures.
// API-class errors are replayable (idempotency key) but only by explicit user
// action: the server said something, the scorer should read it first.
func autoRetryable(err *SessionError) bool {
	return err.Class == ClassNetwork || err.Class == ClassTimeout
}
