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
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// TokenInfo is what the client can read out of its own bearer token without
// verifying it: enough to fail fast on an expired or malformed token before a
// session starts. The backend remains the authority on whether the token is
// actually accepted.
type TokenInfo struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// InspectToken parses the bearer token without signature verification and
// extracts the claims the session cares about.
func InspectToken(tokenString string) (*TokenInfo, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, newValidationError("token", "bearer token is not a valid JWT: "+err.Error())
	}

	info := &TokenInfo{}
	if sub, err := token.Claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := token.Claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Expired reports whether the token has already expired (with a small leeway
// for clock skew). Tokens without an exp claim are never reported expired.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.After(t.ExpiresAt.Add(30 * time.Second))
}

// VerifyToken validates the bearer token against the backend's JWKS endpoint.
// Optional: sessions run fine without it, but a scorer standing at a ground
// with a stale token is better served by an upfront failure than a 401 on the
// first ball.
func VerifyToken(ctx context.Context, jwksURL, tokenString string) error {
	if jwksURL == "" {
		return newValidationError("token", "no JWKS URL configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
	defer cancel()
	set, err := jwk.Fetch(fetchCtx, jwksURL)
	if err != nil {
		return classifyTransportError("jwks", fmt.Errorf("failed to fetch JWKS: %w", err))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
			// Allowed
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token missing 'kid' header")
		}
		key, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("key %s not found in JWKS", kid)
		}
		var raw interface{}
		if err := jwk.Export(key, &raw); err != nil {
			return nil, fmt.Errorf("failed to materialize key: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		return newValidationError("token", "bearer token rejected: "+err.Error())
	}
	if !token.Valid {
		return newValidationError("token", "bearer token is not valid")
	}
	return nil
}

// maskToken obscures a bearer token for safe logging.
func maskToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if i := strings.LastIndex(token, "."); i > 0 {
		token = token[:i]
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
