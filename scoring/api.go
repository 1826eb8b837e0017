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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds every REST call.
const DefaultRequestTimeout = 10 * time.Second

// MatchInfo is the bootstrap payload for a live match.
type MatchInfo struct {
	MatchID        string         `json:"matchId"`
	Phase          string         `json:"phase"`
	OversLimit     int            `json:"oversLimit"`
	PlayersPerTeam int            `json:"playersPerTeam"`
	Target         int            `json:"target,omitempty"`
	Score          ScoreSnapshot  `json:"score"`
	Players        CurrentPlayers `json:"currentPlayers"`
	Roster         []RosterPlayer `json:"roster"`
	BattingTeamID  string         `json:"battingTeamId"`
	BowlingTeamID  string         `json:"bowlingTeamId"`
}

// BallPayload is the wire form of a resolved ball event.
type BallPayload struct {
	Innings            int      `json:"innings"`
	Over               int      `json:"over"`
	BallInOver         int      `json:"ballInOver"`
	BallType           string   `json:"ballType"`
	Runs               RunSplit `json:"runs"`
	IsWicket           bool     `json:"isWicket"`
	WicketType         string   `json:"wicketType,omitempty"`
	DismissedPlayerID  string   `json:"dismissedPlayerId,omitempty"`
	FielderID          string   `json:"fielderId,omitempty"`
	AssistantFielderID string   `json:"assistantFielderId,omitempty"`
	StrikerID          string   `json:"strikerId"`
	NonStrikerID       string   `json:"nonStrikerId"`
	BowlerID           string   `json:"bowlerId"`
	Commentary         string   `json:"commentary,omitempty"`
}

// BallResult is the server's authoritative answer to a recorded ball. The
// client applies it verbatim: score, rotated strikers (the server alone
// decides strike rotation, including after odd-run run-outs), stat patches and
// lifecycle flags.
type BallResult struct {
	Score           ScoreSnapshot  `json:"score"`
	Players         CurrentPlayers `json:"currentPlayers"`
	StatPatches     []StatPatch    `json:"statPatches,omitempty"`
	Commentary      string         `json:"commentary,omitempty"`
	OverCompleted   bool           `json:"overCompleted"`
	WicketFell      bool           `json:"wicketFell"`
	AllOut          bool           `json:"allOut"`
	InningsComplete bool           `json:"inningsComplete"`
	MatchComplete   bool           `json:"matchComplete"`
	Target          int            `json:"target,omitempty"`
	ResultSummary   string         `json:"resultSummary,omitempty"`
}

// apiEnvelope is the uniform response wrapper: {success, data|message}.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// APIClient talks to the scoring backend's REST surface. All calls carry the
// bearer token and the client-side timeout; none of them interpret the score —
// they decode what the server said and hand it up.
type APIClient struct {
	base  string
	token string
	hc    *http.Client
	log   *logrus.Entry
}

// NewAPIClient creates a client for the given base URL and bearer token.
func NewAPIClient(base, token string, log *logrus.Logger) *APIClient {
	if log == nil {
		log = logrus.New()
	}
	return &APIClient{
		base:  trimTrailingSlash(base),
		token: token,
		hc:    &http.Client{Timeout: DefaultRequestTimeout},
		log:   log.WithField("component", "api"),
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Bootstrap fetches the match snapshot, roster and phase.
func (c *APIClient) Bootstrap(ctx context.Context, matchID string) (*MatchInfo, error) {
	var info MatchInfo
	if err := c.do(ctx, http.MethodGet, c.matchPath(matchID, ""), nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SubmitBall records one ball. The idempotency key is generated per draft and
// reused verbatim on every retry of the same draft, so a replay after a lost
// response cannot double-record the ball.
func (c *APIClient) SubmitBall(ctx context.Context, matchID string, payload *BallPayload, idempotencyKey string) (*BallResult, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}
	var res BallResult
	if err := c.do(ctx, http.MethodPost, c.matchPath(matchID, "ball"), headers, payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UndoBall asks the server to revert the most recent ball.
func (c *APIClient) UndoBall(ctx context.Context, matchID string) (*BallResult, error) {
	var res BallResult
	if err := c.do(ctx, http.MethodPost, c.matchPath(matchID, "undo-ball"), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InningsChange starts the second innings with the computed target.
func (c *APIClient) InningsChange(ctx context.Context, matchID string, target int) (*MatchInfo, error) {
	body := map[string]int{"target": target}
	var info MatchInfo
	if err := c.do(ctx, http.MethodPost, c.matchPath(matchID, "innings-change"), nil, body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CompleteMatch marks the match as finished.
func (c *APIClient) CompleteMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	var info MatchInfo
	if err := c.do(ctx, http.MethodPost, c.matchPath(matchID, "complete"), nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetCurrentPlayers replaces the striker, non-striker and bowler after a
// new-batsman or new-bowler selection.
func (c *APIClient) SetCurrentPlayers(ctx context.Context, matchID string, players CurrentPlayers) error {
	body := map[string]string{
		"strikerId":    players.Striker.PlayerID,
		"nonStrikerId": players.NonStriker.PlayerID,
		"bowlerId":     players.Bowler.PlayerID,
	}
	return c.do(ctx, http.MethodPut, c.matchPath(matchID, "current-players"), nil, body, nil)
}

func (c *APIClient) matchPath(matchID, suffix string) string {
	p := c.base + "/live-matches/" + url.PathEscape(matchID)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// do runs one request/response cycle: bearer auth, JSON body, envelope
// decode, taxonomy classification.
func (c *APIClient) do(ctx context.Context, method, rawURL string, headers http.Header, body, out any) error {
	op := method + " " + rawURL

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return newCriticalError(op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return newCriticalError(op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "elapsed": time.Since(start).String()}).WithError(err).Warn("request failed")
		return classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return classifyTransportError(op, err)
	}

	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &SessionError{
				Class:   ClassAPI,
				Op:      op,
				Err:     fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err),
				Message: "the server returned an unreadable response",
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("server error (status %d)", resp.StatusCode)
		}
		class := ClassAPI
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			class = ClassValidation
		}
		return &SessionError{Class: class, Op: op, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &SessionError{
				Class:   ClassAPI,
				Op:      op,
				Err:     fmt.Errorf("decoding response data: %w", err),
				Message: "the server returned an unreadable response",
			}
		}
	}
	return nil
}
