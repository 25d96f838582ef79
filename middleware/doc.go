// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs method, path, status, and duration_ms once the handler returns. 5xx
responses are logged at Warn.

# Identity

The voter identity arrives in X-Voter-ID, set by the authentication layer
in front of this service. Nothing here authenticates voters:

	voterID := middleware.VoterID(r)

Administrator routes are wrapped with RequireAdmin, which compares
X-Admin-Key against the configured key in constant time:

	mux.HandleFunc("POST /admin/elections", middleware.RequireAdmin(cfg.AdminKey, h.CreateElection))

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows GET, POST, PATCH, DELETE, OPTIONS with headers Content-Type,
X-Admin-Key, X-Voter-ID.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

ParseJSONBody rejects unknown fields, trailing data, and bodies over 1 MiB:

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Checks X-Forwarded-For, then X-Real-IP, then RemoteAddr. The result is only
ever stored as an HMAC hash.
*/
package middleware
