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

// PlayerRef is an immutable identity pair resolved against the roster the
// backend supplies on session bootstrap.
type PlayerRef struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// IsZero reports whether the reference names nobody.
func (p PlayerRef) IsZero() bool {
	return p.PlayerID == ""
}

// BallDraft accumulates the pending ball's attributes before submission. It is
// owned by the active scoring session, holds only local state, and never
// touches the network. A fresh draft is created after every successful
// submission and on session bootstrap; drafts are never persisted.
type BallDraft struct {
	Innings    int    `json:"innings"`
	Over       int    `json:"over"`
	BallInOver int    `json:"ballInOver"`
	BallType   string `json:"ballType"`
	RunsInput  int    `json:"runsInput"`

	IsWicket         bool      `json:"isWicket"`
	WicketType       string    `json:"wicketType,omitempty"`
	Fielder          PlayerRef `json:"fielder,omitempty"`
	AssistantFielder PlayerRef `json:"assistantFielder,omitempty"`
	DismissedPlayer  PlayerRef `json:"dismissedPlayer,omitempty"`

	Commentary string `json:"commentary,omitempty"`
}

// NewBallDraft returns an empty draft positioned at the given delivery.
func NewBallDraft(innings, over, ballInOver int) *BallDraft {
	return &BallDraft{
		Innings:    innings,
		Over:       over,
		BallInOver: ballInOver,
		BallType:   BallTypeLegal,
	}
}

// SetBallType switches the delivery type. The runs split is not stored on the
// draft at all; RunSplit derives it from the raw entered count on demand, so a
// type change while a run count is already set re-computes the split instead
// of relabeling a stale one.
func (d *BallDraft) SetBallType(t string) error {
	if !IsValidBallType(t) {
		return newValidationError("setBallType", "unknown ball type: "+t)
	}
	d.BallType = t
	return nil
}

// QuickScore records the keypad run count for the current delivery type.
func (d *BallDraft) QuickScore(runs int) error {
	if runs < 0 {
		return newValidationError("quickScore", "runs must not be negative")
	}
	d.RunsInput = runs
	return nil
}

// ToggleWicket flips the wicket flag. Turning it on defaults the dismissal to
// the first member of the taxonomy; turning it off clears the dismissal fields
// while preserving run count, delivery type and commentary.
func (d *BallDraft) ToggleWicket() {
	if d.IsWicket {
		d.IsWicket = false
		d.WicketType = ""
		d.Fielder = PlayerRef{}
		d.AssistantFielder = PlayerRef{}
		d.DismissedPlayer = PlayerRef{}
		return
	}
	d.IsWicket = true
	d.WicketType = WicketTypes[0]
}

// SetWicketType selects the dismissal type on a draft whose wicket flag is on.
// Changing the type away from run-out drops any collected run-out selections.
func (d *BallDraft) SetWicketType(t string) error {
	if !d.IsWicket {
		return newValidationError("setWicketType", "wicket flag is not set")
	}
	if !IsValidWicketType(t) {
		return newValidationError("setWicketType", "unknown wicket type: "+t)
	}
	if d.WicketType == WicketRunOut && t != WicketRunOut {
		d.DismissedPlayer = PlayerRef{}
		d.AssistantFielder = PlayerRef{}
	}
	if wicketNeedsFielder(t) != wicketNeedsFielder(d.WicketType) {
		d.Fielder = PlayerRef{}
	}
	d.WicketType = t
	return nil
}

// RunSplit returns the current {total, batsman, extras} derivation.
func (d *BallDraft) RunSplit() RunSplit {
	return SplitRuns(d.BallType, d.RunsInput)
}

// wicketNeedsFielder reports whether the dismissal type requires a named
// fielder before submission. Only run-out and caught prompt; stumped and the
// other keeper-adjacent dismissals are attributable without one.
func wicketNeedsFielder(t string) bool {
	return t == WicketRunOut || t == WicketCaught
}

// wicketNeedsDismissedSelection reports whether the dismissal can take either
// batsman, so the scorer must say which one. Every other dismissal defaults to
// the striker.
func wicketNeedsDismissedSelection(t string) bool {
	return t == WicketRunOut
}
