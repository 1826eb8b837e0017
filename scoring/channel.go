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
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	// reconnectMaxAttempts bounds one reconnection run; after that the
	// channel gives up and reports itself dead.
	reconnectMaxAttempts = 10

	// reconnectBaseDelay is the first reconnection delay; each attempt
	// doubles it up to reconnectMaxDelay.
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second

	// reconnectStableUptime is how long a connection must live before the
	// supervisor treats it as healthy again: only then does a server-forced
	// close earn an immediate redial and a backoff reset. An accept-then-kick
	// server stays on the delay schedule instead of a tight dial loop.
	reconnectStableUptime = 30 * time.Second
)

// Event is one realtime message in either direction.
type Event struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Channel maintains the session's single realtime connection. It joins one
// match-scoped room on connect, pumps inbound events to the session, and
// reconnects on its own with bounded attempts. A forced server-side disconnect
// on a connection that had been stable gets one immediate reconnect; anything
// short-lived goes back on the backoff schedule.
type Channel struct {
	wsURL   string
	token   string
	matchID string
	log     *logrus.Entry
	metrics *Metrics

	events chan Event
	send   chan Event

	started atomic.Bool
	closed  atomic.Bool
	done    chan struct{}

	// generation guards against duplicate-init races: pumps from a previous
	// connection that outlive it must not touch the current one.
	generation atomic.Int64

	mu   sync.Mutex
	conn *websocket.Conn

	dialer *websocket.Dialer
}

// NewChannel creates a realtime channel for one match session. baseURL is the
// backend's HTTP base; the websocket endpoint is derived from it.
func NewChannel(baseURL, token, matchID string, metrics *Metrics, log *logrus.Logger) (*Channel, error) {
	if log == nil {
		log = logrus.New()
	}
	wsURL, err := deriveWSURL(baseURL)
	if err != nil {
		return nil, newCriticalError("channel", err)
	}
	return &Channel{
		wsURL:   wsURL,
		token:   token,
		matchID: matchID,
		log:     log.WithField("component", "channel"),
		metrics: metrics,
		events:  make(chan Event, 64),
		send:    make(chan Event, 64),
		done:    make(chan struct{}),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// deriveWSURL rewrites the HTTP base URL to its websocket endpoint.
func deriveWSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Events is the inbound event stream. It closes when the channel is dead
// (explicit Close or reconnection attempts exhausted).
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Start opens the connection and begins pumping. It is a no-op after the
// first call: one mounted session never holds more than one live connection.
func (c *Channel) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	go c.supervise()
	return nil
}

// Emit queues an outbound event. Events queued while disconnected are sent
// after the next successful reconnect; the queue drops when full rather than
// blocking the session loop.
func (c *Channel) Emit(ev Event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.send <- ev:
	default:
		c.log.WithField("type", ev.Type).Warn("outbound queue full, dropping event")
	}
}

// EmitBall sends a ball event over the socket (score:ball).
func (c *Channel) EmitBall(payload *BallPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.WithError(err).Error("marshal ball event")
		return
	}
	c.Emit(Event{Type: EvScoreBall, MatchID: c.matchID, Data: data})
}

// Close leaves the match room and tears the connection down. The session owns
// exactly one Close per mount.
func (c *Channel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		leave, _ := json.Marshal(Event{Type: EvLeaveMatch, MatchID: c.matchID})
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, leave)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	close(c.done)
}

// supervise owns the connection lifecycle: dial, join, pump, reconnect.
func (c *Channel) supervise() {
	defer close(c.events)

	attempts := 0
	delay := reconnectBaseDelay
	immediate := false

	for !c.closed.Load() {
		conn, err := c.dial()
		if err != nil {
			attempts++
			c.metrics.IncReconnect()
			if attempts >= reconnectMaxAttempts {
				c.log.WithError(err).Error("realtime channel gave up reconnecting")
				c.deliver(Event{Type: EvDisconnect, Message: "realtime connection lost"})
				return
			}
			c.log.WithFields(logrus.Fields{"attempt": attempts, "next_wait": delay.String()}).WithError(err).Warn("dial failed")
			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		attempts = 0
		gen := c.generation.Add(1)
		connectedAt := time.Now()

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		// Join the match-scoped room first thing on every (re)connect.
		c.Emit(Event{Type: EvJoinMatch, MatchID: c.matchID})

		stopWrite := make(chan struct{})
		writerDone := make(chan struct{})
		go c.writePump(conn, gen, stopWrite, writerDone)
		immediate = c.readPump(conn, gen)

		conn.Close()
		close(stopWrite)
		<-writerDone

		if c.closed.Load() {
			return
		}
		stable := time.Since(connectedAt) >= reconnectStableUptime
		if stable {
			delay = reconnectBaseDelay
		}
		if immediate && stable {
			// Forced disconnect after a healthy run, likely a server
			// restart: one immediate reconnect attempt.
			c.log.Info("server closed the connection, reconnecting immediately")
			continue
		}
		c.metrics.IncReconnect()
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := c.dialer.Dial(c.wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// readPump pumps events from the connection into the session until the
// connection dies. It reports whether the close was server-forced (true means
// the supervisor should retry immediately).
func (c *Channel) readPump(conn *websocket.Conn, gen int64) bool {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	forced := false
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseServiceRestart) {
				forced = true
			} else if !c.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("read error")
			}
			return forced
		}
		if c.generation.Load() != gen {
			return false
		}
		c.metrics.IncChannelEvent(ev.Type)

		switch ev.Type {
		case EvDisconnect:
			// The server announces a forced disconnect before closing.
			forced = true
			c.deliver(ev)
		case EvConnectionEstablished, EvMatchJoined:
			c.log.WithField("type", ev.Type).Debug("channel handshake")
			c.deliver(ev)
		default:
			c.deliver(ev)
		}
	}
}

// writePump pumps queued outbound events and keeps the connection alive with
// pings. stop is closed when the reader for the same connection exits.
func (c *Channel) writePump(conn *websocket.Conn, gen int64, stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			if c.generation.Load() != gen {
				// Connection superseded; requeue for the live one.
				c.Emit(ev)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				c.Emit(ev)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Channel) deliver(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.WithField("type", ev.Type).Warn("inbound queue full, dropping event")
	}
}
