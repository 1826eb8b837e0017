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

// ResolverState is the single tagged state of the dismissal/transition
// resolver. Exactly one selection can be pending at any time, which rules out
// the impossible combinations a pile of independent booleans would allow.
type ResolverState int

const (
	// StateIdle accepts draft edits and submissions.
	StateIdle ResolverState = iota

	// Pre-submission gates: the draft needs more input before it may be sent.
	StateAwaitingRunOutSelection
	StateAwaitingFielder
	StateAwaitingLastBallConfirm

	// Post-submission gates: the server response demands a selection before
	// the next draft may be composed.
	StateAwaitingNewBowler
	StateAwaitingNewBatsman
	StateAwaitingInningsTransition

	// StateMatchComplete is terminal; no further drafts are accepted.
	StateMatchComplete
)

var resolverStateNames = map[ResolverState]string{
	StateIdle:                      "idle",
	StateAwaitingRunOutSelection:   "awaiting-run-out-selection",
	StateAwaitingFielder:           "awaiting-fielder",
	StateAwaitingLastBallConfirm:   "awaiting-last-ball-confirm",
	StateAwaitingNewBowler:         "awaiting-new-bowler",
	StateAwaitingNewBatsman:        "awaiting-new-batsman",
	StateAwaitingInningsTransition: "awaiting-innings-transition",
	StateMatchComplete:             "match-complete",
}

func (s ResolverState) String() string {
	if n, ok := resolverStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// CurrentPlayers identifies the three players a legal ball submission needs.
type CurrentPlayers struct {
	Striker    PlayerRef `json:"striker"`
	NonStriker PlayerRef `json:"nonStriker"`
	Bowler     PlayerRef `json:"bowler"`
}

// Resolver is the finite-state gate between "draft ready" and "submit". It
// never talks to the network; the session feeds it drafts, snapshots and
// server responses and it answers with the one selection still missing.
type Resolver struct {
	state          ResolverState
	oversLimit     int
	playersPerTeam int

	// lastBallConfirmed is per-draft; cleared when a new draft is created.
	lastBallConfirmed bool

	// newBowlerPending queues the over-transition prompt behind the
	// new-batsman prompt when a wicket falls on the over's final ball.
	newBowlerPending bool
}

// NewResolver creates a resolver for a match with the given limits.
func NewResolver(oversLimit, playersPerTeam int) *Resolver {
	return &Resolver{
		state:          StateIdle,
		oversLimit:     oversLimit,
		playersPerTeam: playersPerTeam,
	}
}

// State returns the current resolver state.
func (r *Resolver) State() ResolverState {
	return r.state
}

// ComposeAllowed reports whether the draft may still be edited. Pre-submission
// gates keep the draft editable (the scorer may cancel out of them);
// post-submission gates and the terminal state do not.
func (r *Resolver) ComposeAllowed() bool {
	switch r.state {
	case StateIdle, StateAwaitingRunOutSelection, StateAwaitingFielder, StateAwaitingLastBallConfirm:
		return true
	default:
		return false
	}
}

// Gate inspects a composed draft against the current score and phase and
// decides whether it may be submitted. It returns the state the resolver
// settled in: StateIdle means pass-through, any awaiting state names the
// selection that must be provided first. The branches are checked in a fixed
// order so at most one prompt is ever open.
func (r *Resolver) Gate(draft *BallDraft, snap ScoreSnapshot, phase string, players CurrentPlayers) (ResolverState, error) {
	switch r.state {
	case StateMatchComplete:
		return r.state, ErrMatchComplete
	case StateAwaitingNewBowler, StateAwaitingNewBatsman, StateAwaitingInningsTransition:
		return r.state, ErrDraftBlocked
	}

	if phase == PhaseCompleted {
		r.state = StateMatchComplete
		return r.state, ErrMatchComplete
	}

	if snap.Balls >= r.oversLimit*BallsPerOver {
		return r.state, ErrInningsComplete
	}

	if draft.IsWicket {
		switch {
		case wicketNeedsDismissedSelection(draft.WicketType):
			if draft.DismissedPlayer.IsZero() || draft.Fielder.IsZero() {
				r.state = StateAwaitingRunOutSelection
				return r.state, nil
			}
		case wicketNeedsFielder(draft.WicketType):
			if draft.Fielder.IsZero() {
				r.state = StateAwaitingFielder
				return r.state, nil
			}
		}
		// Only a run-out can dismiss either batsman; everything else takes
		// the striker with no prompt.
		if draft.DismissedPlayer.IsZero() && !wicketNeedsDismissedSelection(draft.WicketType) {
			draft.DismissedPlayer = players.Striker
		}
	}

	if CountsTowardOver(draft.BallType) && snap.Balls+1 == r.oversLimit*BallsPerOver && !r.lastBallConfirmed {
		r.state = StateAwaitingLastBallConfirm
		return r.state, nil
	}

	r.state = StateIdle
	return r.state, nil
}

// ProvideRunOutSelection records which batsman was run out and who fielded.
// The assistant fielder is optional.
func (r *Resolver) ProvideRunOutSelection(draft *BallDraft, dismissed, fielder, assistant PlayerRef) error {
	if r.state != StateAwaitingRunOutSelection {
		return newValidationError("runOutSelection", "no run-out selection pending")
	}
	if dismissed.IsZero() {
		return newValidationError("runOutSelection", "dismissed batsman is required")
	}
	if fielder.IsZero() {
		return newValidationError("runOutSelection", "fielder is required")
	}
	draft.DismissedPlayer = dismissed
	draft.Fielder = fielder
	draft.AssistantFielder = assistant
	r.state = StateIdle
	return nil
}

// ProvideFielder records the catching fielder.
func (r *Resolver) ProvideFielder(draft *BallDraft, fielder PlayerRef) error {
	if r.state != StateAwaitingFielder {
		return newValidationError("fielderSelection", "no fielder selection pending")
	}
	if fielder.IsZero() {
		return newValidationError("fielderSelection", "fielder is required")
	}
	draft.Fielder = fielder
	r.state = StateIdle
	return nil
}

// ConfirmLastBall acknowledges the irreversible-once-sent warning for the
// final delivery of the innings.
func (r *Resolver) ConfirmLastBall() error {
	if r.state != StateAwaitingLastBallConfirm {
		return newValidationError("lastBallConfirm", "no last-ball confirmation pending")
	}
	r.lastBallConfirmed = true
	r.state = StateIdle
	return nil
}

// CancelPending abandons an open pre-submission prompt and returns to idle.
func (r *Resolver) CancelPending() {
	switch r.state {
	case StateAwaitingRunOutSelection, StateAwaitingFielder, StateAwaitingLastBallConfirm:
		r.state = StateIdle
	}
}

// AfterResponse applies the server's authoritative post-ball flags and decides
// which follow-up selection, if any, must happen before the next draft.
// Precedence: match completion wins, then the first-innings transition, then
// the new batsman (a wicket that also ends the over queues the new-bowler
// prompt behind it).
func (r *Resolver) AfterResponse(res *BallResult) ResolverState {
	r.lastBallConfirmed = false

	switch {
	case res.MatchComplete:
		r.state = StateMatchComplete
	case res.InningsComplete && res.Score.Innings == 1:
		r.state = StateAwaitingInningsTransition
	case res.WicketFell && !res.AllOut:
		r.newBowlerPending = res.OverCompleted
		r.state = StateAwaitingNewBatsman
	case res.OverCompleted:
		r.state = StateAwaitingNewBowler
	default:
		r.state = StateIdle
	}
	return r.state
}

// ProvideNewBatsman resolves the new-batsman prompt. If the wicket also closed
// the over, the new-bowler prompt opens next.
func (r *Resolver) ProvideNewBatsman(batsman PlayerRef) (ResolverState, error) {
	if r.state != StateAwaitingNewBatsman {
		return r.state, newValidationError("newBatsman", "no new-batsman selection pending")
	}
	if batsman.IsZero() {
		return r.state, newValidationError("newBatsman", "new batsman is required")
	}
	if r.newBowlerPending {
		r.newBowlerPending = false
		r.state = StateAwaitingNewBowler
	} else {
		r.state = StateIdle
	}
	return r.state, nil
}

// ProvideNewBowler resolves the new-bowler prompt.
func (r *Resolver) ProvideNewBowler(bowler PlayerRef) (ResolverState, error) {
	if r.state != StateAwaitingNewBowler {
		return r.state, newValidationError("newBowler", "no new-bowler selection pending")
	}
	if bowler.IsZero() {
		return r.state, newValidationError("newBowler", "new bowler is required")
	}
	r.state = StateIdle
	return r.state, nil
}

// BeginSecondInnings resolves the innings transition. The target for the
// chasing side is first-innings runs plus one; it is computed here for display
// and sent to the backend, which recomputes it authoritatively.
func (r *Resolver) BeginSecondInnings(firstInningsRuns int) (int, error) {
	if r.state != StateAwaitingInningsTransition {
		return 0, newValidationError("inningsTransition", "no innings transition pending")
	}
	r.state = StateIdle
	return firstInningsRuns + 1, nil
}

// AwaitInningsTransition opens the innings-transition prompt directly, used
// when a session bootstraps into a match already sitting in the innings break.
func (r *Resolver) AwaitInningsTransition() {
	r.state = StateAwaitingInningsTransition
}

// NoteNewDraft clears per-draft bookkeeping when a fresh draft is composed.
func (r *Resolver) NoteNewDraft() {
	r.lastBallConfirmed = false
}

// ForceComplete moves the resolver to its terminal state, used when the
// backend announces completion out of band.
func (r *Resolver) ForceComplete() {
	r.state = StateMatchComplete
}
