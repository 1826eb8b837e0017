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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a notification stays visible unless
// dismissed first.
const DefaultNotificationTTL = 8 * time.Second

// Notification is one user-visible notice. Errors are never silently
// swallowed: every failure in the session ends up here (and in the log).
type Notification struct {
	ID      string
	Class   ErrorClass
	Message string
	Seq     uint64 // monotonic ordering across the queue
	Created time.Time
	Expires time.Time

	// Retry, when non-nil, replays the failed operation with its original
	// arguments. Only set for retryable classes.
	Retry func()

	// Sticky notifications never auto-expire (e.g. "session replaced").
	Sticky bool
}

// Notifier is a single id-keyed notification queue. One shared timer expires
// entries; items never own their own timers.
type Notifier struct {
	mu      sync.Mutex
	items   map[string]*Notification
	seq     uint64
	ttl     time.Duration
	onEvent func(Notification)

	stopOnce sync.Once
	stop     chan struct{}
}

// NewNotifier creates a notifier. onEvent, when non-nil, is invoked once for
// every pushed notification (the console prints them; tests capture them).
func NewNotifier(ttl time.Duration, onEvent func(Notification)) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	n := &Notifier{
		items:   make(map[string]*Notification),
		ttl:     ttl,
		onEvent: onEvent,
		stop:    make(chan struct{}),
	}
	go n.expireLoop()
	return n
}

func (n *Notifier) expireLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case now := <-ticker.C:
			n.mu.Lock()
			for id, item := range n.items {
				if !item.Sticky && now.After(item.Expires) {
					delete(n.items, id)
				}
			}
			n.mu.Unlock()
		}
	}
}

// Push adds a notification and returns its id.
func (n *Notifier) Push(class ErrorClass, message string, retry func()) string {
	return n.push(class, message, retry, false)
}

// PushSticky adds a notification that stays until dismissed.
func (n *Notifier) PushSticky(class ErrorClass, message string) string {
	return n.push(class, message, nil, true)
}

func (n *Notifier) push(class ErrorClass, message string, retry func(), sticky bool) string {
	now := time.Now()
	n.mu.Lock()
	n.seq++
	item := &Notification{
		ID:      uuid.NewString(),
		Class:   class,
		Message: message,
		Seq:     n.seq,
		Created: now,
		Expires: now.Add(n.ttl),
		Retry:   retry,
		Sticky:  sticky,
	}
	n.items[item.ID] = item
	cb := n.onEvent
	snapshot := *item
	n.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return item.ID
}

// PushError surfaces a session error with its class and user message. A retry
// callback is attached only when the class allows one.
func (n *Notifier) PushError(err *SessionError, retry func()) string {
	if err.Retryable() && retry != nil {
		return n.Push(err.Class, err.UserMessage(), retry)
	}
	return n.Push(err.Class, err.UserMessage(), nil)
}

// Dismiss removes a notification by id.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	delete(n.items, id)
	n.mu.Unlock()
}

// Active returns the live notifications in push order.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	out := make([]Notification, 0, len(n.items))
	for _, item := range n.items {
		out = append(out, *item)
	}
	n.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Lookup returns a notification by id.
func (n *Notifier) Lookup(id string) (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	item, ok := n.items[id]
	if !ok {
		return Notification{}, false
	}
	return *item, true
}

// Close stops the expiry loop.
func (n *Notifier) Close() {
	n.stopOnce.Do(func() { close(n.stop) })
}
