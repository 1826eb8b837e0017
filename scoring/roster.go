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

import "sort"

// BattingStats is a player's batting line for the current match.
type BattingStats struct {
	Runs       int    `json:"runs"`
	BallsFaced int    `json:"ballsFaced"`
	Fours      int    `json:"fours"`
	Sixes      int    `json:"sixes"`
	IsOut      bool   `json:"isOut"`
	HowOut     string `json:"howOut,omitempty"`
}

// BowlingStats is a player's bowling line for the current match.
type BowlingStats struct {
	BallsBowled  int `json:"ballsBowled"`
	RunsConceded int `json:"runsConceded"`
	Wickets      int `json:"wickets"`
	Wides        int `json:"wides"`
	NoBalls      int `json:"noBalls"`
}

// RosterPlayer is one member of a playing XI together with the match stats the
// server has confirmed for them.
type RosterPlayer struct {
	PlayerRef
	TeamID  string       `json:"teamId"`
	Batting BattingStats `json:"batting"`
	Bowling BowlingStats `json:"bowling"`
}

// Roster holds both playing XIs keyed by playerId. The rosters and every stat
// line in them are server-owned; the only write path is a keyed patch from a
// server response. Nothing here is ever addressed by positional index.
type Roster struct {
	players map[string]*RosterPlayer
}

// NewRoster builds a roster from the bootstrap payload.
func NewRoster(players []RosterPlayer) *Roster {
	r := &Roster{players: make(map[string]*RosterPlayer, len(players))}
	for i := range players {
		p := players[i]
		if p.PlayerID == "" {
			continue
		}
		r.players[p.PlayerID] = &p
	}
	return r
}

// Lookup resolves a player id against the roster.
func (r *Roster) Lookup(playerID string) (PlayerRef, bool) {
	p, ok := r.players[playerID]
	if !ok {
		return PlayerRef{}, false
	}
	return p.PlayerRef, true
}

// Player returns the full roster entry for a player id.
func (r *Roster) Player(playerID string) (RosterPlayer, bool) {
	p, ok := r.players[playerID]
	if !ok {
		return RosterPlayer{}, false
	}
	return *p, true
}

// Team returns a team's players sorted by name for stable display.
func (r *Roster) Team(teamID string) []RosterPlayer {
	var out []RosterPlayer
	for _, p := range r.players {
		if p.TeamID == teamID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerName < out[j].PlayerName })
	return out
}

// StatPatch is a server-confirmed stat replacement for a single player.
type StatPatch struct {
	PlayerID string        `json:"playerId"`
	Batting  *BattingStats `json:"batting,omitempty"`
	Bowling  *BowlingStats `json:"bowling,omitempty"`
}

// ApplyPatches replaces stat lines for the named players. Patches for unknown
// players are ignored; the next bootstrap refetch reconciles them.
func (r *Roster) ApplyPatches(patches []StatPatch) {
	for _, patch := range patches {
		p, ok := r.players[patch.PlayerID]
		if !ok {
			continue
		}
		if patch.Batting != nil {
			p.Batting = *patch.Batting
		}
		if patch.Bowling != nil {
			p.Bowling = *patch.Bowling
		}
	}
}

// Replace swaps the whole roster for a freshly fetched one.
func (r *Roster) Replace(players []RosterPlayer) {
	r.players = make(map[string]*RosterPlayer, len(players))
	for i := range players {
		p := players[i]
		if p.PlayerID == "" {
			continue
		}
		r.players[p.PlayerID] = &p
	}
}

// All returns every player across both teams, sorted by name.
func (r *Roster) All() []RosterPlayer {
	out := make([]RosterPlayer, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerName < out[j].PlayerName })
	return out
}

// Size returns the number of players across both teams.
func (r *Roster) Size() int {
	return len(r.players)
}
