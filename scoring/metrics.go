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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the session does on the wire. A nil *Metrics is valid
// and counts nothing, so sessions without a metrics listener skip the
// registry entirely.
type Metrics struct {
	registry      *prometheus.Registry
	submissions   *prometheus.CounterVec
	retries       prometheus.Counter
	reconnects    prometheus.Counter
	channelEvents *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crease_ball_submissions_total",
			Help: "Ball submissions by final result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crease_submission_retries_total",
			Help: "Automatic submission retries.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crease_channel_reconnects_total",
			Help: "Realtime channel reconnection attempts.",
		}),
		channelEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crease_channel_events_total",
			Help: "Inbound realtime events by type.",
		}, []string{"type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crease_notifications_total",
			Help: "Notifications surfaced to the scorer, by class.",
		}, []string{"class"}),
	}
	m.registry.MustRegister(m.submissions, m.retries, m.reconnects, m.channelEvents, m.notifications)
	return m
}

// Handler exposes the registry for a metrics listener.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) IncChannelEvent(eventType string) {
	if m == nil {
		return
	}
	m.channelEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncNotification(class ErrorClass) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(class)).Inc()
}
