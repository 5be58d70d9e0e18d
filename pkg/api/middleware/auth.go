// Tensile Core
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Tensile Core.
//
// Tensile Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tensile Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tensile Core.  If not, see <http://www.gnu.org/licenses/>.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const APIKeyHeader = "X-Api-Key"

// APIAuth decides which clients may call routes that change device or
// service state. Reads are left to the IP filter.
type APIAuth struct {
	keys   func() []string
	filter *IPFilter
}

// NewAPIAuth reads keys on every request so a config reload applies without
// a restart. filter is the allow-list already applied to the request.
func NewAPIAuth(keys func() []string, filter *IPFilter) *APIAuth {
	return &APIAuth{keys: keys, filter: filter}
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// requestKey returns the key from X-Api-Key or an Authorization bearer token.
func requestKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// IsAuthorized reports whether r may change state. Loopback clients always
// may. Remote clients need a configured key, or, when no keys are set, an
// explicit allowed_ips entry covering them.
func (a *APIAuth) IsAuthorized(r *http.Request) bool {
	if isReadOnly(r.Method) {
		return true
	}
	if ip := ParseRemoteIP(r.RemoteAddr); ip != nil && ip.IsLoopback() {
		return true
	}

	keys := a.keys()
	if len(keys) == 0 {
		return a.filter != nil && a.filter.Enabled() && a.filter.IsAllowed(r.RemoteAddr)
	}

	given := requestKey(r)
	if given == "" {
		return false
	}
	for _, key := range keys {
		if key != "" && subtle.ConstantTimeCompare([]byte(given), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// HTTPAuthMiddleware answers 401 to remote clients that may not change state.
func HTTPAuthMiddleware(auth *APIAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.IsAuthorized(r) {
				log.Warn().
					Str("addr", r.RemoteAddr).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("unauthorized request to mutating route")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
