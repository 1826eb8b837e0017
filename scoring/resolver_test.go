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
	"errors"
	"testing"
)

func testPlayers() CurrentPlayers {
	return CurrentPlayers{
		Striker:    PlayerRef{PlayerID: makeUUID(1), PlayerName: "Striker"},
		NonStriker: PlayerRef{PlayerID: makeUUID(2), PlayerName: "NonStriker"},
		Bowler:     PlayerRef{PlayerID: makeUUID(3), PlayerName: "Bowler"},
	}
}

func TestGateRunOutNeedsSelection(t *testing.T) {
	r := NewResolver(20, 11)
	d := NewBallDraft(1, 5, 2)
	d.QuickScore(1)
	d.ToggleWicket()
	d.SetWicketType(WicketRunOut)

	state, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 25}, PhaseInProgress, testPlayers())
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if state != StateAwaitingRunOutSelection {
		t.Fatalf("Expected awaiting-run-out-selection, got %v", state)
	}
	if !r.ComposeAllowed() {
		t.Error("Draft must stay editable during a pre-submission prompt")
	}

	out := PlayerRef{PlayerID: makeUUID(2), PlayerName: "NonStriker"}
	fielder := PlayerRef{PlayerID: makeUUID(7), PlayerName: "Fielder"}
	if err := r.ProvideRunOutSelection(d, PlayerRef{}, fielder, PlayerRef{}); err == nil {
		t.Error("Expected error for empty dismissed batsman")
	}
	if err := r.ProvideRunOutSelection(d, out, fielder, PlayerRef{}); err != nil {
		t.Fatalf("ProvideRunOutSelection failed: %v", err)
	}
	if r.State() != StateIdle {
		t.Errorf("Expected idle after selection, got %v", r.State())
	}
	if d.DismissedPlayer != out || d.Fielder != fielder {
		t.Errorf("Selections not recorded on draft: %+v", d)
	}

	// The completed draft now passes the gate.
	state, err = r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 25}, PhaseInProgress, testPlayers())
	if err != nil || state != StateIdle {
		t.Errorf("Expected pass-through, got state=%v err=%v", state, err)
	}
}

func TestGateCaughtNeedsFielder(t *testing.T) {
	r := NewResolver(20, 11)
	d := NewBallDraft(1, 2, 4)
	d.ToggleWicket()
	d.SetWicketType(WicketCaught)

	state, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 9}, PhaseInProgress, testPlayers())
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if state != StateAwaitingFielder {
		t.Fatalf("Expected awaiting-fielder, got %v", state)
	}

	if err := r.ProvideFielder(d, PlayerRef{}); err == nil {
		t.Error("Expected error for empty fielder")
	}
	if err := r.ProvideFielder(d, PlayerRef{PlayerID: makeUUID(8), PlayerName: "Mid-off"}); err != nil {
		t.Fatalf("ProvideFielder failed: %v", err)
	}
	// Caught defaults the dismissed batsman to the striker on the next gate.
	state, err = r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 9}, PhaseInProgress, testPlayers())
	if err != nil || state != StateIdle {
		t.Fatalf("Expected pass-through, got state=%v err=%v", state, err)
	}
	if d.DismissedPlayer.PlayerID != makeUUID(1) {
		t.Errorf("Expected striker as dismissed batsman, got %+v", d.DismissedPlayer)
	}
}

// Bowled, lbw, stumped, hit-wicket and caught-and-bowled pass the gate with no
// prompt; the striker is filled in as the dismissed batsman.
func TestGateNoPromptDismissals(t *testing.T) {
	for _, wt := range []string{WicketBowled, WicketLBW, WicketStumped, WicketHitWicket, WicketCaughtAndBowled} {
		t.Run(wt, func(t *testing.T) {
			r := NewResolver(20, 11)
			d := NewBallDraft(1, 2, 4)
			d.ToggleWicket()
			d.SetWicketType(wt)

			state, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 9}, PhaseInProgress, testPlayers())
			if err != nil {
				t.Fatalf("Gate failed: %v", err)
			}
			if state != StateIdle {
				t.Errorf("Expected pass-through for %s, got %v", wt, state)
			}
			if d.DismissedPlayer.PlayerID != makeUUID(1) {
				t.Errorf("Expected striker dismissed, got %+v", d.DismissedPlayer)
			}
		})
	}
}

func TestGateLastBallConfirm(t *testing.T) {
	r := NewResolver(20, 11)

	// Ball 120 of a 20-over innings: one legal delivery remains.
	d := NewBallDraft(1, 20, 6)
	state, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 119}, PhaseInProgress, testPlayers())
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if state != StateAwaitingLastBallConfirm {
		t.Fatalf("Expected awaiting-last-ball-confirm at 119 balls, got %v", state)
	}

	if err := r.ConfirmLastBall(); err != nil {
		t.Fatalf("ConfirmLastBall failed: %v", err)
	}
	state, err = r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 119}, PhaseInProgress, testPlayers())
	if err != nil || state != StateIdle {
		t.Fatalf("Expected pass-through after confirmation, got state=%v err=%v", state, err)
	}

	// A wide at 119 balls does not consume the last legal ball; no prompt.
	r2 := NewResolver(20, 11)
	wide := NewBallDraft(1, 20, 6)
	wide.SetBallType(BallTypeWide)
	state, err = r2.Gate(wide, ScoreSnapshot{Innings: 1, Balls: 119}, PhaseInProgress, testPlayers())
	if err != nil || state != StateIdle {
		t.Errorf("A wide must not trigger the last-ball prompt: state=%v err=%v", state, err)
	}
}

func TestGateRefusesPastInnings(t *testing.T) {
	r := NewResolver(20, 11)
	d := NewBallDraft(1, 21, 1)
	_, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 120}, PhaseInProgress, testPlayers())
	if !errors.Is(err, ErrInningsComplete) {
		t.Errorf("Expected ErrInningsComplete at 120 balls, got %v", err)
	}
}

func TestGateTerminal(t *testing.T) {
	r := NewResolver(20, 11)
	d := NewBallDraft(2, 1, 1)
	_, err := r.Gate(d, ScoreSnapshot{Innings: 2, Balls: 30}, PhaseCompleted, testPlayers())
	if !errors.Is(err, ErrMatchComplete) {
		t.Fatalf("Expected ErrMatchComplete for completed phase, got %v", err)
	}
	// Terminal is sticky.
	_, err = r.Gate(d, ScoreSnapshot{Innings: 2, Balls: 30}, PhaseInProgress, testPlayers())
	if !errors.Is(err, ErrMatchComplete) {
		t.Errorf("Expected terminal state to stick, got %v", err)
	}
	if r.ComposeAllowed() {
		t.Error("Compose must be refused after match completion")
	}
}

func TestCancelPending(t *testing.T) {
	r := NewResolver(20, 11)
	d := NewBallDraft(1, 2, 1)
	d.ToggleWicket()
	d.SetWicketType(WicketCaught)
	if state, _ := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 7}, PhaseInProgress, testPlayers()); state != StateAwaitingFielder {
		t.Fatalf("Expected awaiting-fielder, got %v", state)
	}
	r.CancelPending()
	if r.State() != StateIdle {
		t.Errorf("Expected idle after cancel, got %v", r.State())
	}
}

func TestAfterResponsePrecedence(t *testing.T) {
	tests := []struct {
		name string
		res  BallResult
		want ResolverState
	}{
		{
			"match completion wins over everything",
			BallResult{MatchComplete: true, InningsComplete: true, WicketFell: true, OverCompleted: true, Score: ScoreSnapshot{Innings: 2}},
			StateMatchComplete,
		},
		{
			"first innings done",
			BallResult{InningsComplete: true, OverCompleted: true, Score: ScoreSnapshot{Innings: 1}},
			StateAwaitingInningsTransition,
		},
		{
			"wicket fell",
			BallResult{WicketFell: true, Score: ScoreSnapshot{Innings: 1}},
			StateAwaitingNewBatsman,
		},
		{
			"all out skips the batsman prompt",
			BallResult{WicketFell: true, AllOut: true, InningsComplete: true, Score: ScoreSnapshot{Innings: 1}},
			StateAwaitingInningsTransition,
		},
		{
			"over completed",
			BallResult{OverCompleted: true, Score: ScoreSnapshot{Innings: 1}},
			StateAwaitingNewBowler,
		},
		{
			"plain ball",
			BallResult{Score: ScoreSnapshot{Innings: 1}},
			StateIdle,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(20, 11)
			if got := r.AfterResponse(&tc.res); got != tc.want {
				t.Errorf("AfterResponse = %v, want %v", got, tc.want)
			}
		})
	}
}

// A wicket on the over's final ball prompts for the new batsman first, then
// the new bowler.
func TestWicketOnFinalBallChainsPrompts(t *testing.T) {
	r := NewResolver(20, 11)
	state := r.AfterResponse(&BallResult{WicketFell: true, OverCompleted: true, Score: ScoreSnapshot{Innings: 1, Balls: 30}})
	if state != StateAwaitingNewBatsman {
		t.Fatalf("Expected new-batsman prompt first, got %v", state)
	}

	state, err := r.ProvideNewBatsman(PlayerRef{PlayerID: makeUUID(9), PlayerName: "Number 5"})
	if err != nil {
		t.Fatalf("ProvideNewBatsman failed: %v", err)
	}
	if state != StateAwaitingNewBowler {
		t.Fatalf("Expected chained new-bowler prompt, got %v", state)
	}

	state, err = r.ProvideNewBowler(PlayerRef{PlayerID: makeUUID(10), PlayerName: "First change"})
	if err != nil {
		t.Fatalf("ProvideNewBowler failed: %v", err)
	}
	if state != StateIdle {
		t.Errorf("Expected idle after both selections, got %v", state)
	}
}

func TestPostSubmissionGatesBlockDrafts(t *testing.T) {
	r := NewResolver(20, 11)
	r.AfterResponse(&BallResult{WicketFell: true, Score: ScoreSnapshot{Innings: 1}})

	d := NewBallDraft(1, 6, 1)
	_, err := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 30}, PhaseInProgress, testPlayers())
	if !errors.Is(err, ErrDraftBlocked) {
		t.Errorf("Expected ErrDraftBlocked while awaiting new batsman, got %v", err)
	}
	if r.ComposeAllowed() {
		t.Error("Compose must be refused during a post-submission gate")
	}
}

func TestBeginSecondInnings(t *testing.T) {
	r := NewResolver(20, 11)
	if _, err := r.BeginSecondInnings(148); err == nil {
		t.Error("Expected error with no transition pending")
	}

	r.AfterResponse(&BallResult{InningsComplete: true, Score: ScoreSnapshot{Innings: 1, Runs: 148}})
	target, err := r.BeginSecondInnings(148)
	if err != nil {
		t.Fatalf("BeginSecondInnings failed: %v", err)
	}
	if target != 149 {
		t.Errorf("Expected target 149, got %d", target)
	}
	if r.State() != StateIdle {
		t.Errorf("Expected idle, got %v", r.State())
	}
}

// The last-ball confirmation is per draft: a new draft needs a fresh one.
func TestLastBallConfirmResetOnNewDraft(t *testing.T) {
	r := NewResolver(1, 11) // one-over innings for a short fixture
	d := NewBallDraft(1, 1, 6)

	if state, _ := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 5}, PhaseInProgress, testPlayers()); state != StateAwaitingLastBallConfirm {
		t.Fatalf("Expected last-ball prompt, got %v", state)
	}
	if err := r.ConfirmLastBall(); err != nil {
		t.Fatalf("ConfirmLastBall failed: %v", err)
	}
	r.NoteNewDraft()
	if state, _ := r.Gate(d, ScoreSnapshot{Innings: 1, Balls: 5}, PhaseInProgress, testPlayers()); state != StateAwaitingLastBallConfirm {
		t.Errorf("Expected the confirmation to reset with the new draft, got %v", state)
	}
}
