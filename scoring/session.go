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
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config carries everything a scoring session needs. BaseURL, Token and
// MatchID are injected configuration; the session never computes them.
type Config struct {
	BaseURL string
	Token   string
	MatchID string

	// Cache, when set, persists the last server view for restart fallback.
	Cache *SessionCache

	// Metrics, when set, counts wire activity. Nil is fine.
	Metrics *Metrics

	Logger *logrus.Logger

	// OnNotification receives every surfaced notification (the console
	// prints them).
	OnNotification func(Notification)

	// ReportCritical receives critical-class errors for external reporting.
	ReportCritical func(error)
}

// CommentaryEntry is one line of the bounded live feed, newest first.
type CommentaryEntry struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the live ball-entry controller for one match. All state lives
// behind a single event-loop goroutine: user commands, submission results and
// realtime events are funneled through it, so there is no concurrent mutation
// to reason about.
type Session struct {
	cfg      Config
	api      *APIClient
	channel  *Channel
	notifier *Notifier
	resolver *Resolver
	pipeline *Pipeline
	roster   *Roster
	log      *logrus.Entry

	// Event-loop-owned state. Touched only from run().
	snapshot      ScoreSnapshot
	phase         string
	target        int
	oversLimit    int
	players       CurrentPlayers
	draft         *BallDraft
	commentary    []CommentaryEntry
	resultSummary string
	lastDismissed PlayerRef
	online        bool
	replaced      bool
	degraded      bool // bootstrapped from cache, refetch still pending

	cmds chan func()
	done chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSession wires a session from its parts. Call Start to bootstrap it.
func NewSession(cfg Config) (*Session, error) {
	if err := ValidateMatchID(cfg.MatchID); err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, newValidationError("session", "bearer token is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}

	info, err := InspectToken(cfg.Token)
	if err != nil {
		return nil, err
	}
	if info.Expired(time.Now()) {
		return nil, newValidationError("session", "bearer token is expired")
	}

	api := NewAPIClient(cfg.BaseURL, cfg.Token, log)
	notifier := NewNotifier(DefaultNotificationTTL, cfg.OnNotification)
	channel, err := NewChannel(cfg.BaseURL, cfg.Token, cfg.MatchID, cfg.Metrics, log)
	if err != nil {
		notifier.Close()
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		api:      api,
		channel:  channel,
		notifier: notifier,
		pipeline: NewPipeline(api, cfg.MatchID, notifier, cfg.Metrics, log),
		log: log.WithFields(logrus.Fields{
			"component": "session",
			"match":     cfg.MatchID,
			"token":     maskToken(cfg.Token),
		}),
		online: true,
		cmds:   make(chan func(), 16),
		done:   make(chan struct{}),
	}
	s.pipeline.Online = func() bool { return s.online }
	s.pipeline.OnManualRetry = s.retrySubmission
	return s, nil
}

// Start bootstraps the session: fetch the match view, open the realtime
// channel, seed local state, and spin up the event loop. If the fetch fails
// with a transient error and a cached view exists, the session starts
// degraded on the cache and lets the channel deliver fresh truth.
func (s *Session) Start(ctx context.Context) error {
	var startErr error
	s.startOnce.Do(func() {
		info, err := s.api.Bootstrap(ctx, s.cfg.MatchID)
		if err != nil {
			var se *SessionError
			if errors.As(err, &se) && se.Retryable() {
				if cached, cacheErr := s.cfg.Cache.Load(s.cfg.MatchID); cacheErr == nil {
					s.log.WithError(err).Warn("bootstrap failed, starting from cached view")
					s.seedFromCache(cached)
					s.notifier.Push(se.Class, "Could not reach the server. Showing the last known score.", nil)
					if startErr = s.startLoop(); startErr == nil {
						go s.rebootstrap(ctx)
					}
					return
				}
			}
			startErr = err
			return
		}
		s.seedFromBootstrap(info)
		startErr = s.startLoop()
	})
	return startErr
}

func (s *Session) startLoop() error {
	if err := s.channel.Start(); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Session) seedFromBootstrap(info *MatchInfo) {
	s.snapshot = info.Score
	s.phase = info.Phase
	s.target = info.Target
	s.oversLimit = info.OversLimit
	s.players = info.Players
	s.roster = NewRoster(info.Roster)
	s.resolver = NewResolver(info.OversLimit, info.PlayersPerTeam)
	s.seedResolverPhase()
	s.resetCurrentBall()
	s.degraded = false
	s.saveCache()
}

// seedResolverPhase maps the server's phase onto the resolver so a freshly
// seeded session opens the right prompt: a match already in its innings break
// has exactly one legal action, starting the second innings.
func (s *Session) seedResolverPhase() {
	switch s.phase {
	case PhaseCompleted:
		s.resolver.ForceComplete()
	case PhaseInningsBreak:
		s.resolver.AwaitInningsTransition()
	}
}

func (s *Session) seedFromCache(cached *CachedSession) {
	s.snapshot = cached.Score
	s.phase = cached.Phase
	s.target = cached.Target
	s.players = cached.Players
	s.roster = NewRoster(cached.Roster)
	// Limits are unknown from cache alone; use the cached roster size as the
	// team-size hint and a T20 default for overs until the refetch lands.
	s.oversLimit = 20
	playersPerTeam := len(cached.Roster) / 2
	if playersPerTeam < 2 {
		playersPerTeam = 11
	}
	s.resolver = NewResolver(s.oversLimit, playersPerTeam)
	s.seedResolverPhase()
	s.resetCurrentBall()
	s.degraded = true
}

// rebootstrap keeps refetching the live view after a degraded start until the
// server answers, then replaces the cached seed with fresh truth.
func (s *Session) rebootstrap(ctx context.Context) {
	delay := reconnectBaseDelay
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		info, err := s.api.Bootstrap(ctx, s.cfg.MatchID)
		if err == nil {
			s.post(func() {
				if s.degraded {
					s.seedFromBootstrap(info)
					s.log.Info("recovered live view from server")
				}
			})
			return
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// run is the event loop. Every state mutation happens here.
func (s *Session) run() {
	events := s.channel.Events()
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)
		}
	}
}

// exec runs fn on the event loop and waits for it.
func (s *Session) exec(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case <-s.done:
		return ErrSessionClosed
	case s.cmds <- func() { reply <- fn() }:
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	case err := <-reply:
		return err
	}
}

// Stop tears the session down: leave the room, close the channel, stop the
// notifier. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.channel.Close()
		s.notifier.Close()
		s.log.Info("session stopped")
	})
}

// --- Composer surface ---------------------------------------------------

// composerGuard blocks draft edits while a submission is in flight, after the
// match has completed, or while a post-submission selection is pending.
func (s *Session) composerGuard() error {
	if s.replaced {
		return newValidationError("compose", "this session was replaced by another device")
	}
	if s.pipeline.Busy() {
		return &SessionError{Class: ClassValidation, Op: "compose", Err: ErrSubmissionInFlight, Message: "previous ball is still being recorded"}
	}
	if !s.resolver.ComposeAllowed() {
		if s.resolver.State() == StateMatchComplete {
			return &SessionError{Class: ClassValidation, Op: "compose", Err: ErrMatchComplete, Message: "match is complete"}
		}
		return &SessionError{Class: ClassValidation, Op: "compose", Err: ErrDraftBlocked, Message: "finish the pending selection first (" + s.resolver.State().String() + ")"}
	}
	return nil
}

// SetBallType switches the pending ball's delivery type.
func (s *Session) SetBallType(t string) error {
	return s.exec(func() error {
		if err := s.composerGuard(); err != nil {
			return err
		}
		return s.draft.SetBallType(t)
	})
}

// QuickScore sets the pending ball's run count.
func (s *Session) QuickScore(runs int) error {
	return s.exec(func() error {
		if err := s.composerGuard(); err != nil {
			return err
		}
		return s.draft.QuickScore(runs)
	})
}

// ToggleWicket flips the pending ball's wicket flag.
func (s *Session) ToggleWicket() error {
	return s.exec(func() error {
		if err := s.composerGuard(); err != nil {
			return err
		}
		s.draft.ToggleWicket()
		return nil
	})
}

// SetWicketType selects the dismissal type.
func (s *Session) SetWicketType(t string) error {
	return s.exec(func() error {
		if err := s.composerGuard(); err != nil {
			return err
		}
		return s.draft.SetWicketType(t)
	})
}

// SetCommentary attaches free-text commentary to the pending ball.
func (s *Session) SetCommentary(text string) error {
	return s.exec(func() error {
		if err := s.composerGuard(); err != nil {
			return err
		}
		s.draft.Commentary = text
		return nil
	})
}

// --- Resolver surface ---------------------------------------------------

// SubmitBall routes the composed draft through the resolver. StateIdle means
// the ball went to the pipeline; any other returned state names the selection
// the caller must provide before trying again.
func (s *Session) SubmitBall(ctx context.Context) (ResolverState, error) {
	var state ResolverState
	err := s.exec(func() error {
		if s.replaced {
			return newValidationError("submit", "this session was replaced by another device")
		}
		if s.pipeline.Busy() {
			state = s.resolver.State()
			return &SessionError{Class: ClassValidation, Op: "submit", Err: ErrSubmissionInFlight, Message: "previous ball is still being recorded"}
		}

		st, err := s.resolver.Gate(s.draft, s.snapshot, s.phase, s.players)
		state = st
		if err != nil {
			return err
		}
		if st != StateIdle {
			return nil
		}

		payload, err := s.pipeline.BuildPayload(s.players, s.draft)
		if err != nil {
			var se *SessionError
			if errors.As(err, &se) {
				s.notifier.Push(se.Class, se.UserMessage(), nil)
			}
			return err
		}
		s.dispatchSubmission(ctx, payload, NewIdempotencyKey())
		return nil
	})
	return state, err
}

// ResolveRunOut provides the run-out selections: who was dismissed, who
// fielded, and optionally who assisted.
func (s *Session) ResolveRunOut(dismissedID, fielderID, assistantID string) error {
	return s.exec(func() error {
		dismissed, err := s.mustLookup(dismissedID, "dismissed batsman")
		if err != nil {
			return err
		}
		fielder, err := s.mustLookup(fielderID, "fielder")
		if err != nil {
			return err
		}
		var assistant PlayerRef
		if assistantID != "" {
			if assistant, err = s.mustLookup(assistantID, "assistant fielder"); err != nil {
				return err
			}
		}
		return s.resolver.ProvideRunOutSelection(s.draft, dismissed, fielder, assistant)
	})
}

// ResolveFielder provides the catching fielder.
func (s *Session) ResolveFielder(fielderID string) error {
	return s.exec(func() error {
		fielder, err := s.mustLookup(fielderID, "fielder")
		if err != nil {
			return err
		}
		return s.resolver.ProvideFielder(s.draft, fielder)
	})
}

// ConfirmLastBall acknowledges the last-ball warning.
func (s *Session) ConfirmLastBall() error {
	return s.exec(func() error { return s.resolver.ConfirmLastBall() })
}

// CancelPending abandons the open pre-submission prompt.
func (s *Session) CancelPending() error {
	return s.exec(func() error {
		s.resolver.CancelPending()
		return nil
	})
}

// ResolveNewBatsman replaces the dismissed batsman and pushes the change to
// the backend.
func (s *Session) ResolveNewBatsman(ctx context.Context, playerID string) error {
	return s.exec(func() error {
		batsman, err := s.mustLookup(playerID, "new batsman")
		if err != nil {
			return err
		}
		if _, err := s.resolver.ProvideNewBatsman(batsman); err != nil {
			return err
		}
		// The incoming batsman takes the dismissed player's end; the server
		// re-confirms on the next response.
		if s.players.Striker.PlayerID == s.lastDismissed.PlayerID || s.players.Striker.IsZero() {
			s.players.Striker = batsman
		} else {
			s.players.NonStriker = batsman
		}
		s.pushCurrentPlayers(ctx)
		return nil
	})
}

// ResolveNewBowler selects the bowler for the next over.
func (s *Session) ResolveNewBowler(ctx context.Context, playerID string) error {
	return s.exec(func() error {
		bowler, err := s.mustLookup(playerID, "new bowler")
		if err != nil {
			return err
		}
		if _, err := s.resolver.ProvideNewBowler(bowler); err != nil {
			return err
		}
		s.players.Bowler = bowler
		s.pushCurrentPlayers(ctx)
		return nil
	})
}

// StartSecondInnings closes the innings break with the computed target.
func (s *Session) StartSecondInnings(ctx context.Context) error {
	return s.exec(func() error {
		target, err := s.resolver.BeginSecondInnings(s.snapshot.Runs)
		if err != nil {
			return err
		}
		s.target = target
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
			defer cancel()
			info, err := s.api.InningsChange(callCtx, s.cfg.MatchID, target)
			s.post(func() {
				if err != nil {
					// The transition is still owed; reopen the prompt so
					// the scorer can try again.
					if s.resolver.State() != StateMatchComplete {
						s.resolver.AwaitInningsTransition()
					}
					s.surfaceError("innings-change", err, nil)
					return
				}
				s.seedFromBootstrap(info)
				s.notifier.Push(ClassAPI, "Second innings started. Target: "+strconv.Itoa(target), nil)
			})
		}()
		return nil
	})
}

// CompleteMatch asks the backend to finalize the match, e.g. when the second
// innings ran out of balls or the game is abandoned. The server is the
// authority on whether completion is acceptable.
func (s *Session) CompleteMatch(ctx context.Context) error {
	return s.exec(func() error {
		if s.resolver.State() == StateMatchComplete {
			return &SessionError{Class: ClassValidation, Op: "complete", Err: ErrMatchComplete, Message: "match is already complete"}
		}
		if s.pipeline.Busy() {
			return &SessionError{Class: ClassValidation, Op: "complete", Err: ErrSubmissionInFlight, Message: "previous ball is still being recorded"}
		}
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
			defer cancel()
			info, err := s.api.CompleteMatch(callCtx, s.cfg.MatchID)
			s.post(func() {
				if err != nil {
					s.surfaceError("complete", err, nil)
					return
				}
				s.seedFromBootstrap(info)
				s.notifier.PushSticky(ClassAPI, "Match complete.")
				if s.cfg.Cache != nil {
					if err := s.cfg.Cache.Purge(s.cfg.MatchID); err != nil {
						s.log.WithError(err).Warn("purge session cache")
					}
				}
			})
		}()
		return nil
	})
}

// Undo asks the server to revert the last recorded ball.
func (s *Session) Undo(ctx context.Context) error {
	return s.exec(func() error {
		if s.pipeline.Busy() {
			return &SessionError{Class: ClassValidation, Op: "undo", Err: ErrSubmissionInFlight, Message: "previous ball is still being recorded"}
		}
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
			defer cancel()
			res, err := s.api.UndoBall(callCtx, s.cfg.MatchID)
			s.post(func() {
				if err != nil {
					s.surfaceError("undo", err, nil)
					return
				}
				s.applyReverted(res.Score, res.Players)
				s.notifier.Push(ClassAPI, "Undo succeeded.", nil)
			})
		}()
		return nil
	})
}

// SetOnline flips the connectivity flag fed by the host's network probe.
func (s *Session) SetOnline(online bool) {
	s.post(func() {
		if s.online == online {
			return
		}
		s.online = online
		if online {
			s.log.Info("back online")
		} else {
			s.log.Warn("offline")
			s.notifier.Push(ClassNetwork, "You are offline.", nil)
		}
	})
}

// --- Read surface -------------------------------------------------------

// View is an immutable copy of the session state for rendering.
type View struct {
	Score         ScoreSnapshot
	Phase         string
	Target        int
	Players       CurrentPlayers
	Draft         BallDraft
	ResolverState ResolverState
	Commentary    []CommentaryEntry
	ResultSummary string
	Degraded      bool
	InFlight      bool
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() (View, error) {
	var v View
	err := s.exec(func() error {
		v = View{
			Score:         s.snapshot,
			Phase:         s.phase,
			Target:        s.target,
			Players:       s.players,
			Draft:         *s.draft,
			ResolverState: s.resolver.State(),
			Commentary:    append([]CommentaryEntry(nil), s.commentary...),
			ResultSummary: s.resultSummary,
			Degraded:      s.degraded,
			InFlight:      s.pipeline.Busy(),
		}
		return nil
	})
	return v, err
}

// RosterPlayers returns one team's players for selection prompts.
func (s *Session) RosterPlayers(teamID string) ([]RosterPlayer, error) {
	var out []RosterPlayer
	err := s.exec(func() error {
		out = s.roster.Team(teamID)
		return nil
	})
	return out, err
}

// Notifications returns the active notification queue.
func (s *Session) Notifications() []Notification {
	return s.notifier.Active()
}

// DismissNotification removes a notification by id.
func (s *Session) DismissNotification(id string) {
	s.notifier.Dismiss(id)
}

// --- Internals ----------------------------------------------------------

// post schedules fn on the event loop without waiting.
func (s *Session) post(fn func()) {
	select {
	case <-s.done:
	case s.cmds <- fn:
	}
}

func (s *Session) mustLookup(playerID, what string) (PlayerRef, error) {
	ref, ok := s.roster.Lookup(playerID)
	if !ok {
		return PlayerRef{}, newValidationError("lookup", "unknown "+what+": "+playerID)
	}
	return ref, nil
}

// dispatchSubmission runs the pipeline off-loop and posts the outcome back.
func (s *Session) dispatchSubmission(ctx context.Context, payload *BallPayload, key string) {
	if s.draft.IsWicket {
		s.lastDismissed = s.draft.DismissedPlayer
	}
	go func() {
		res, err := s.pipeline.Submit(ctx, payload, key)
		s.post(func() { s.finishSubmission(payload, res, err) })
	}()
}

// retrySubmission is the manual-retry hook: it replays the identical payload
// and idempotency key through the loop.
func (s *Session) retrySubmission(payload *BallPayload, key string) {
	s.post(func() {
		if s.replaced || s.resolver.State() == StateMatchComplete {
			return
		}
		go func() {
			res, err := s.pipeline.Submit(context.Background(), payload, key)
			s.post(func() { s.finishSubmission(payload, res, err) })
		}()
	})
}

func (s *Session) finishSubmission(payload *BallPayload, res *BallResult, err error) {
	if err != nil {
		// The pipeline already surfaced the notification; the draft stays
		// intact for editing or manual retry.
		if ClassOf(err) == ClassCritical && s.cfg.ReportCritical != nil {
			s.cfg.ReportCritical(err)
		}
		return
	}

	if !res.Score.Supersedes(s.snapshot) {
		// A late response superseded by the realtime channel.
		s.log.WithFields(logrus.Fields{
			"response_balls": res.Score.Balls,
			"local_balls":    s.snapshot.Balls,
		}).Info("discarding stale submission response")
		return
	}

	s.snapshot = res.Score
	s.players = res.Players
	if s.roster != nil {
		s.roster.ApplyPatches(res.StatPatches)
	}
	if res.Target > 0 {
		s.target = res.Target
	}
	if res.Commentary != "" {
		s.addCommentary(res.Commentary)
	}
	if res.ResultSummary != "" {
		s.resultSummary = res.ResultSummary
	}

	state := s.resolver.AfterResponse(res)
	switch state {
	case StateMatchComplete:
		s.phase = PhaseCompleted
		s.notifier.PushSticky(ClassAPI, "Match complete. "+res.ResultSummary)
		if s.cfg.Cache != nil {
			if err := s.cfg.Cache.Purge(s.cfg.MatchID); err != nil {
				s.log.WithError(err).Warn("purge session cache")
			}
		}
	case StateAwaitingInningsTransition:
		s.phase = PhaseInningsBreak
	}

	s.resetCurrentBall()
	s.saveCache()
}

// resetCurrentBall replaces the draft with a fresh one positioned at the next
// delivery.
func (s *Session) resetCurrentBall() {
	over := s.snapshot.Balls/BallsPerOver + 1
	ball := s.snapshot.Balls%BallsPerOver + 1
	innings := s.snapshot.Innings
	if innings < 1 {
		innings = 1
	}
	s.draft = NewBallDraft(innings, over, ball)
	if s.resolver != nil {
		s.resolver.NoteNewDraft()
	}
}

func (s *Session) handleEvent(ev Event) {
	switch ev.Type {
	case EvScoreUpdate:
		var snap ScoreSnapshot
		if err := json.Unmarshal(ev.Data, &snap); err != nil {
			s.log.WithError(err).Warn("bad score_update payload")
			return
		}
		if !snap.Supersedes(s.snapshot) {
			return
		}
		s.snapshot = snap
		if !s.pipeline.Busy() && s.resolver.ComposeAllowed() {
			s.resetCurrentBall()
		}
		s.saveCache()

	case EvBallEvent, EvCommentaryUpdate:
		var entry struct {
			Commentary string `json:"commentary"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(ev.Data, &entry); err != nil {
			return
		}
		text := entry.Commentary
		if text == "" {
			text = entry.Text
		}
		if text != "" {
			s.addCommentary(text)
		}

	case EvBallUndone:
		var snap ScoreSnapshot
		if err := json.Unmarshal(ev.Data, &snap); err != nil {
			s.log.WithError(err).Warn("bad ball_undone payload")
			return
		}
		s.applyReverted(snap, s.players)
		s.notifier.Push(ClassAPI, "A ball was undone.", nil)

	case EvSessionReplaced:
		s.replaced = true
		s.notifier.PushSticky(ClassValidation, "This scoring session is now active on another device.")
		s.log.Warn("session replaced by another device")

	case EvDisconnect:
		if ev.Message != "" {
			s.notifier.Push(ClassNetwork, ev.Message, nil)
		}

	case EvConnectionEstablished, EvMatchJoined:
		// Handshake chatter; nothing to apply.

	default:
		s.log.WithField("type", ev.Type).Debug("ignoring unknown event")
	}
}

// applyReverted replaces the snapshot with server-reverted values. Reverts
// legitimately move backwards, so they bypass the monotonicity guard.
func (s *Session) applyReverted(snap ScoreSnapshot, players CurrentPlayers) {
	s.snapshot = snap
	s.players = players
	if s.resolver.State() != StateMatchComplete {
		s.resolver.CancelPending()
	}
	s.resetCurrentBall()
	s.saveCache()
}

func (s *Session) addCommentary(text string) {
	s.commentary = append([]CommentaryEntry{{Text: text, At: time.Now()}}, s.commentary...)
	if len(s.commentary) > CommentaryFeedLimit {
		s.commentary = s.commentary[:CommentaryFeedLimit]
	}
}

func (s *Session) pushCurrentPlayers(ctx context.Context) {
	players := s.players
	go func() {
		callCtx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
		if err := s.api.SetCurrentPlayers(callCtx, s.cfg.MatchID, players); err != nil {
			s.post(func() { s.surfaceError("current-players", err, nil) })
		}
	}()
}

func (s *Session) surfaceError(op string, err error, retry func()) {
	var se *SessionError
	if !errors.As(err, &se) {
		se = newCriticalError(op, err)
	}
	s.cfg.Metrics.IncNotification(se.Class)
	s.notifier.PushError(se, retry)
	if se.Class == ClassCritical && s.cfg.ReportCritical != nil {
		s.cfg.ReportCritical(se)
	}
	s.log.WithField("op", op).WithError(err).Error("operation failed")
}

func (s *Session) saveCache() {
	if s.cfg.Cache == nil || s.roster == nil {
		return
	}
	cached := &CachedSession{
		MatchID: s.cfg.MatchID,
		Phase:   s.phase,
		Target:  s.target,
		Score:   s.snapshot,
		Players: s.players,
		Roster:  s.roster.All(),
	}
	if err := s.cfg.Cache.Save(cached); err != nil {
		s.log.WithError(err).Warn("save session cache")
	}
}
