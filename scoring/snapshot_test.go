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

import "testing"

func TestOversNotation(t *testing.T) {
	tests := []struct {
		balls int
		want  string
	}{
		{0, "0.0"},
		{1, "0.1"},
		{6, "1.0"},
		{119, "19.5"},
		{120, "20.0"},
	}
	for _, tc := range tests {
		s := ScoreSnapshot{Balls: tc.balls}
		if got := s.Overs(); got != tc.want {
			t.Errorf("Overs(%d balls) = %q, want %q", tc.balls, got, tc.want)
		}
	}
}

func TestSupersedes(t *testing.T) {
	tests := []struct {
		name     string
		old, new ScoreSnapshot
		want     bool
	}{
		{
			"later ball wins",
			ScoreSnapshot{Innings: 1, Balls: 10, Runs: 12},
			ScoreSnapshot{Innings: 1, Balls: 11, Runs: 13},
			true,
		},
		{
			"earlier ball loses",
			ScoreSnapshot{Innings: 1, Balls: 11, Runs: 13},
			ScoreSnapshot{Innings: 1, Balls: 10, Runs: 12},
			false,
		},
		{
			"second innings wins regardless of balls",
			ScoreSnapshot{Innings: 1, Balls: 120, Runs: 160},
			ScoreSnapshot{Innings: 2, Balls: 0, Runs: 0},
			true,
		},
		{
			"same position same shape is accepted",
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 41, Wickets: 2},
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 41, Wickets: 2},
			true,
		},
		{
			"same position with a wide's extra run is accepted",
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 41},
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 42},
			true,
		},
		{
			"same position with fewer runs is stale",
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 42},
			ScoreSnapshot{Innings: 1, Balls: 30, Runs: 41},
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.new.Supersedes(tc.old); got != tc.want {
				t.Errorf("Supersedes = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChaseOutcome(t *testing.T) {
	const target, overs, players = 150, 20, 11

	tests := []struct {
		name string
		snap ScoreSnapshot
		want MatchOutcome
	}{
		{"chase on track", ScoreSnapshot{Innings: 2, Runs: 100, Balls: 90, Wickets: 4}, OutcomeUndecided},
		{"target reached", ScoreSnapshot{Innings: 2, Runs: 150, Balls: 100, Wickets: 4}, OutcomeChaseWon},
		{"target passed", ScoreSnapshot{Innings: 2, Runs: 153, Balls: 100, Wickets: 4}, OutcomeChaseWon},
		{"overs out one short", ScoreSnapshot{Innings: 2, Runs: 149, Balls: 120, Wickets: 4}, OutcomeTie},
		{"all out one short", ScoreSnapshot{Innings: 2, Runs: 149, Balls: 88, Wickets: 10}, OutcomeTie},
		{"overs out two short", ScoreSnapshot{Innings: 2, Runs: 148, Balls: 120, Wickets: 4}, OutcomeFellShort},
		{"all out well short", ScoreSnapshot{Innings: 2, Runs: 90, Balls: 70, Wickets: 10}, OutcomeFellShort},
		{"first innings never decides", ScoreSnapshot{Innings: 1, Runs: 149, Balls: 120}, OutcomeUndecided},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChaseOutcome(tc.snap, target, overs, players); got != tc.want {
				t.Errorf("ChaseOutcome(%+v) = %q, want %q", tc.snap, got, tc.want)
			}
		})
	}

	if got := ChaseOutcome(ScoreSnapshot{Innings: 2, Runs: 10, Balls: 120}, 0, overs, players); got != OutcomeUndecided {
		t.Errorf("No target must stay undecided, got %q", got)
	}
}
