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

// Ball Types
const (
	BallTypeLegal  = "legal"
	BallTypeWide   = "wide"
	BallTypeNoBall = "no-ball"
	BallTypeBye    = "bye"
	BallTypeLegBye = "leg-bye"
)

// BallTypes lists every delivery type the keypad can produce, in display order.
var BallTypes = []string{BallTypeLegal, BallTypeWide, BallTypeNoBall, BallTypeBye, BallTypeLegBye}

// Wicket Types
const (
	WicketBowled          = "bowled"
	WicketCaught          = "caught"
	WicketLBW             = "lbw"
	WicketRunOut          = "run-out"
	WicketStumped         = "stumped"
	WicketHitWicket       = "hit-wicket"
	WicketCaughtAndBowled = "caught-and-bowled"
)

// WicketTypes lists the dismissal taxonomy. The first member is the default
// when a wicket is toggled on.
var WicketTypes = []string{
	WicketBowled,
	WicketCaught,
	WicketLBW,
	WicketRunOut,
	WicketStumped,
	WicketHitWicket,
	WicketCaughtAndBowled,
}

// Match Phases, as surfaced by the backend.
const (
	PhaseNotStarted   = "not-started"
	PhaseInProgress   = "in-progress"
	PhaseInningsBreak = "innings-break"
	PhaseCompleted    = "completed"
)

// Channel event types consumed from the backend.
const (
	EvConnectionEstablished = "connection_established"
	EvMatchJoined           = "match_joined"
	EvScoreUpdate           = "score_update"
	EvBallEvent             = "ball_event"
	EvCommentaryUpdate      = "commentary_update"
	EvBallUndone            = "ball_undone"
	EvSessionReplaced       = "session_replaced"
	EvDisconnect            = "disconnect"
)

// Channel event types emitted to the backend.
const (
	EvJoinMatch  = "join_match"
	EvLeaveMatch = "leave_match"
	EvScoreBall  = "score:ball"
)

const (
	// BallsPerOver is fixed for limited-overs cricket.
	BallsPerOver = 6

	// CommentaryFeedLimit bounds the in-memory commentary feed.
	CommentaryFeedLimit = 50
)

// IsValidBallType reports whether t is a known delivery type.
func IsValidBallType(t string) bool {
	for _, b := range BallTypes {
		if b == t {
			return true
		}
	}
	return false
}

// IsValidWicketType reports whether t is a known dismissal type.
func IsValidWicketType(t string) bool {
	for _, w := range WicketTypes {
		if w == t {
			return true
		}
	}
	return false
}

// CountsTowardOver reports whether a delivery of type t consumes one of the
// over's six legal balls. Wides and no-balls are re-bowled.
func CountsTowardOver(t string) bool {
	return t != BallTypeWide && t != BallTypeNoBall
}

// RunSplit is the wire breakdown of a single delivery's runs. The backend
// receives the split pre-computed; it is the one piece of scoring arithmetic
// the client owns.
type RunSplit struct {
	Total   int `json:"total"`
	Batsman int `json:"batsman"`
	Extras  int `json:"extras"`
}

// SplitRuns derives the {total, batsman, extras} split for a delivery type and
// the runs entered on the keypad:
//
//	wide:    1 automatic extra + entered runs, all extras, batsman 0
//	no-ball: 1 automatic extra, entered runs credited to the batsman
//	bye:     entered runs all extras, batsman 0
//	leg-bye: entered runs all extras, batsman 0
//	legal:   entered runs all to the batsman, zero extras
//
// The split is always derived from the raw entered count, never from a
// previously derived split, so switching delivery types re-computes it.
func SplitRuns(ballType string, runsInput int) RunSplit {
	if runsInput < 0 {
		runsInput = 0
	}
	switch ballType {
	case BallTypeWide:
		return RunSplit{Total: 1 + runsInput, Batsman: 0, Extras: 1 + runsInput}
	case BallTypeNoBall:
		return RunSplit{Total: 1 + runsInput, Batsman: runsInput, Extras: 1}
	case BallTypeBye, BallTypeLegBye:
		return RunSplit{Total: runsInput, Batsman: 0, Extras: runsInput}
	default:
		return RunSplit{Total: runsInput, Batsman: runsInput, Extras: 0}
	}
}
