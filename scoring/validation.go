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

import "regexp"

// uuidRegex matches standard UUIDs (8-4-4-4-12 hex digits), the id format the
// backend assigns to matches and players.
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// ValidateMatchID rejects malformed match identifiers before any request is
// built from them.
func ValidateMatchID(matchID string) error {
	if !isValidUUID(matchID) {
		return newValidationError("matchId", "invalid match id format: "+matchID)
	}
	return nil
}

// ValidateSubmission checks everything a ball submission needs locally.
// Failures here block the submission without a network call.
func ValidateSubmission(players CurrentPlayers, draft *BallDraft) error {
	if players.Striker.IsZero() {
		return newValidationError("submit", "no striker selected")
	}
	if players.NonStriker.IsZero() {
		return newValidationError("submit", "no non-striker selected")
	}
	if players.Bowler.IsZero() {
		return newValidationError("submit", "no bowler selected")
	}
	if players.Striker.PlayerID == players.NonStriker.PlayerID {
		return newValidationError("submit", "striker and non-striker are the same player")
	}
	return ValidateDraft(draft)
}

// ValidateDraft checks the draft's own invariants: position fields in range,
// known delivery type, and the wicket fields present iff the wicket flag is
// set (with run-out additionally naming the dismissed batsman).
func ValidateDraft(draft *BallDraft) error {
	if draft == nil {
		return newValidationError("draft", "no ball composed")
	}
	if draft.Innings < 1 {
		return newValidationError("draft", "innings must be at least 1")
	}
	if draft.Over < 1 {
		return newValidationError("draft", "over must be at least 1")
	}
	if draft.BallInOver < 1 || draft.BallInOver > BallsPerOver {
		return newValidationError("draft", "ball in over must be between 1 and 6")
	}
	if !IsValidBallType(draft.BallType) {
		return newValidationError("draft", "unknown ball type: "+draft.BallType)
	}
	if draft.RunsInput < 0 {
		return newValidationError("draft", "runs must not be negative")
	}

	if draft.IsWicket {
		if draft.WicketType == "" {
			return newValidationError("draft", "wicket is set but the dismissal type is empty")
		}
		if !IsValidWicketType(draft.WicketType) {
			return newValidationError("draft", "unknown wicket type: "+draft.WicketType)
		}
		if draft.DismissedPlayer.IsZero() {
			return newValidationError("draft", "wicket is set but no dismissed batsman is named")
		}
		if wicketNeedsFielder(draft.WicketType) && draft.Fielder.IsZero() {
			return newValidationError("draft", draft.WicketType+" requires a fielder")
		}
	} else {
		if draft.WicketType != "" {
			return newValidationError("draft", "dismissal type set without the wicket flag")
		}
		if !draft.DismissedPlayer.IsZero() {
			return newValidationError("draft", "dismissed batsman set without the wicket flag")
		}
	}
	return nil
}
