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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testPayload() *BallPayload {
	return &BallPayload{
		Innings: 1, Over: 1, BallInOver: 1,
		BallType:     BallTypeLegal,
		Runs:         SplitRuns(BallTypeLegal, 4),
		StrikerID:    makeUUID(1),
		NonStrikerID: makeUUID(2),
		BowlerID:     makeUUID(3),
	}
}

// fastPipeline shrinks the backoff so retry runs finish quickly.
func fastPipeline(api *APIClient, notifier *Notifier) *Pipeline {
	p := NewPipeline(api, makeUUID(9), notifier, nil, nil)
	p.backoffBase = time.Millisecond
	return p
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	var attempts int
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		if n < 3 {
			// Drop the connection to force a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		writeEnvelope(w, http.StatusOK, BallResult{Score: ScoreSnapshot{Runs: 4, Balls: 1, Innings: 1}}, "")
	}))
	defer server.Close()

	notifier := NewNotifier(time.Minute, nil)
	defer notifier.Close()
	p := fastPipeline(NewAPIClient(server.URL, "test-token", nil), notifier)

	key := NewIdempotencyKey()
	res, err := p.Submit(context.Background(), testPayload(), key)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Score.Runs != 4 {
		t.Errorf("Unexpected result: %+v", res.Score)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	for i, k := range keys {
		if k != key {
			t.Errorf("Attempt %d sent key %q, want %q", i+1, k, key)
		}
	}
}

// After the automatic attempts are exhausted the pipeline surfaces a
// manual-retry action bound to the identical payload and idempotency key.
func TestSubmitManualRetryAfterExhaustion(t *testing.T) {
	var mu sync.Mutex
	var attempts int
	var keys []string
	var bodies []BallPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		var body BallPayload
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		mu.Unlock()
		if n <= 3 {
			hj := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		writeEnvelope(w, http.StatusOK, BallResult{Score: ScoreSnapshot{Runs: 4, Balls: 1, Innings: 1}}, "")
	}))
	defer server.Close()

	notifier := NewNotifier(time.Minute, nil)
	defer notifier.Close()
	p := fastPipeline(NewAPIClient(server.URL, "test-token", nil), notifier)

	replayed := make(chan struct{})
	p.OnManualRetry = func(payload *BallPayload, idempotencyKey string) {
		// The session would re-dispatch through Submit; do the same here.
		if _, err := p.Submit(context.Background(), payload, idempotencyKey); err != nil {
			t.Errorf("replay Submit failed: %v", err)
		}
		close(replayed)
	}

	key := NewIdempotencyKey()
	payload := testPayload()
	_, err := p.Submit(context.Background(), payload, key)
	if err == nil {
		t.Fatal("Expected Submit to fail after 3 attempts")
	}
	if got := ClassOf(err); got != ClassNetwork && got != ClassTimeout {
		t.Errorf("ClassOf = %v, want network or timeout", got)
	}

	active := notifier.Active()
	if len(active) != 1 || active[0].Retry == nil {
		t.Fatalf("Expected one retryable notification, got %+v", active)
	}
	active[0].Retry()

	select {
	case <-replayed:
	case <-time.After(5 * time.Second):
		t.Fatal("Manual retry did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 4 {
		t.Fatalf("Expected 4 attempts (3 automatic + 1 manual), got %d", attempts)
	}
	for i, k := range keys {
		if k != key {
			t.Errorf("Attempt %d key = %q, want %q", i+1, k, key)
		}
	}
	// The manual replay must carry the identical payload.
	first, last := bodies[0], bodies[len(bodies)-1]
	if first != last {
		t.Errorf("Replayed payload differs: first=%+v last=%+v", first, last)
	}
}

func TestSubmitValidationErrorNotRetried(t *testing.T) {
	var mu sync.Mutex
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		writeEnvelope(w, http.StatusUnprocessableEntity, nil, "striker not on roster")
	}))
	defer server.Close()

	notifier := NewNotifier(time.Minute, nil)
	defer notifier.Close()
	p := fastPipeline(NewAPIClient(server.URL, "test-token", nil), notifier)

	_, err := p.Submit(context.Background(), testPayload(), NewIdempotencyKey())
	if err == nil {
		t.Fatal("Expected error")
	}
	if ClassOf(err) != ClassValidation {
		t.Errorf("ClassOf = %v, want validation", ClassOf(err))
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Errorf("Expected a single attempt for a validation error, got %d", attempts)
	}
	if active := notifier.Active(); len(active) != 1 || active[0].Retry != nil {
		t.Errorf("Validation failures must not offer a retry action: %+v", active)
	}
}

func TestSubmitOfflineShortCircuit(t *testing.T) {
	var mu sync.Mutex
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
	}))
	defer server.Close()

	notifier := NewNotifier(time.Minute, nil)
	defer notifier.Close()
	p := fastPipeline(NewAPIClient(server.URL, "test-token", nil), notifier)
	p.Online = func() bool { return false }

	_, err := p.Submit(context.Background(), testPayload(), NewIdempotencyKey())
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("Expected ErrOffline, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 0 {
		t.Errorf("Expected no network calls while offline, got %d", attempts)
	}
}

func TestSubmitInFlightGuard(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeEnvelope(w, http.StatusOK, BallResult{Score: ScoreSnapshot{Balls: 1, Innings: 1}}, "")
	}))
	defer server.Close()

	notifier := NewNotifier(time.Minute, nil)
	defer notifier.Close()
	p := fastPipeline(NewAPIClient(server.URL, "test-token", nil), notifier)

	firstDone := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), testPayload(), NewIdempotencyKey())
		firstDone <- err
	}()

	// Wait until the first submission is holding the guard.
	deadline := time.Now().Add(5 * time.Second)
	for !p.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !p.Busy() {
		t.Fatal("First submission never became busy")
	}

	_, err := p.Submit(context.Background(), testPayload(), NewIdempotencyKey())
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("Expected ErrSubmissionInFlight, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("First submission failed: %v", err)
	}
	if p.Busy() {
		t.Error("Guard not released after completion")
	}
}
