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
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.IncSubmission("ok")
	m.IncSubmission("ok")
	m.IncSubmission("network")
	m.IncRetry()
	m.IncReconnect()
	m.IncChannelEvent(EvScoreUpdate)
	m.IncNotification(ClassTimeout)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	out := string(body)
	for _, want := range []string{
		`crease_ball_submissions_total{result="ok"} 2`,
		`crease_ball_submissions_total{result="network"} 1`,
		`crease_submission_retries_total 1`,
		`crease_channel_reconnects_total 1`,
		`crease_channel_events_total{type="score_update"} 1`,
		`crease_notifications_total{class="timeout"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Exposition missing %q", want)
		}
	}
}

// Every counter method must be safe on a nil receiver.
func TestMetricsNil(t *testing.T) {
	var m *Metrics
	m.IncSubmission("ok")
	m.IncRetry()
	m.IncReconnect()
	m.IncChannelEvent(EvScoreUpdate)
	m.IncNotification(ClassAPI)
	if m.Handler() == nil {
		t.Error("Expected a handler even for nil metrics")
	}
}
