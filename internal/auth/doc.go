// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package auth verifies the bearer tokens callers present to the watch party API.

Tokens are HS256 JWTs issued by the platform's login service and signed with
the shared JWT_SECRET. Watchparty never runs a login flow itself; it only
verifies the token and turns its claims into an AuthSubject.

Key Components:

  - JWTManager: token validation (and minting, for the CLI and tests)
  - JWTAuthenticator: extracts a token from a request and validates it
  - AuthSubject: the normalized caller, stored in the request context

Token Sources:

In order of precedence:

 1. Authorization: Bearer <token>
 2. the "token" cookie
 3. the access_token query parameter, accepted only on websocket upgrades
    because browsers cannot set headers on them

Claims:

	{
	  "sub": "user-123",          // user id, required
	  "username": "alice",
	  "avatar_url": "https://...",
	  "roles": ["admin"],
	  "iss": "podcasts.example",  // checked when JWT_ISSUER is set
	  "exp": 1767225600
	}

Usage Example:

	manager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
	    return err
	}
	authenticator := auth.NewJWTAuthenticator(manager)

	subject, err := authenticator.Authenticate(r.Context(), r)
	if err != nil {
	    // ErrNoCredentials, ErrInvalidCredentials or ErrExpiredCredentials
	}
	ctx := auth.WithSubject(r.Context(), subject)
*/
package auth
