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

import "fmt"

// ExtrasBreakdown itemizes the runs conceded without the bat.
type ExtrasBreakdown struct {
	Wides   int `json:"wides"`
	NoBalls int `json:"noBalls"`
	Byes    int `json:"byes"`
	LegByes int `json:"legByes"`
	Total   int `json:"total"`
}

// ScoreSnapshot is the server-owned innings score. The client holds a cached
// read-only copy and replaces it wholesale on every server response or
// realtime score event; it never mutates one in place.
type ScoreSnapshot struct {
	Runs    int             `json:"runs"`
	Wickets int             `json:"wickets"`
	Balls   int             `json:"balls"` // legal deliveries bowled this innings
	Innings int             `json:"innings"`
	Extras  ExtrasBreakdown `json:"extras"`
}

// Overs renders the balls count in cricket notation, e.g. 119 -> "19.5".
func (s ScoreSnapshot) Overs() string {
	return fmt.Sprintf("%d.%d", s.Balls/BallsPerOver, s.Balls%BallsPerOver)
}

// Supersedes reports whether s is at least as new as old. Both the submission
// pipeline and the realtime channel replace the cached snapshot; a late
// response must not clobber a newer one, so every apply goes through this
// (innings, balls) monotonicity check. Equal positions are accepted because
// the HTTP response and the channel event for the same ball carry the same
// canonical shape.
func (s ScoreSnapshot) Supersedes(old ScoreSnapshot) bool {
	if s.Innings != old.Innings {
		return s.Innings > old.Innings
	}
	if s.Balls != old.Balls {
		return s.Balls > old.Balls
	}
	// Same legal-ball position; wides/no-balls still add runs and wickets.
	return s.Runs >= old.Runs && s.Wickets >= old.Wickets
}

// MatchOutcome is the client's read of a finished (or finishing) chase. The
// server remains authoritative; this exists so the resolver can order its
// terminal branches and the console can announce the result.
type MatchOutcome string

const (
	OutcomeUndecided MatchOutcome = ""
	OutcomeChaseWon  MatchOutcome = "chase-won"
	OutcomeTie       MatchOutcome = "tie"
	OutcomeFellShort MatchOutcome = "fell-short"
)

// ChaseOutcome evaluates the second innings against the target. The tie branch
// is checked before "fell short": a chasing side on target-1 with its balls or
// wickets exhausted has tied, not lost.
func ChaseOutcome(s ScoreSnapshot, target, oversLimit, playersPerTeam int) MatchOutcome {
	if s.Innings < 2 || target <= 0 {
		return OutcomeUndecided
	}
	if s.Runs >= target {
		return OutcomeChaseWon
	}
	exhausted := s.Balls >= oversLimit*BallsPerOver || s.Wickets >= maxWickets(playersPerTeam)
	if !exhausted {
		return OutcomeUndecided
	}
	if s.Runs == target-1 {
		return OutcomeTie
	}
	return OutcomeFellShort
}

// maxWickets is the number of wickets that ends an innings.
func maxWickets(playersPerTeam int) int {
	if playersPerTeam <= 1 {
		return 1
	}
	return playersPerTeam - 1
}
