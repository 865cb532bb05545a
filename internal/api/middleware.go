// Package api implements the fiftytwo REST API using chi.
package api

import (
	"net/http"
	"strings"
)

// JSONOnly rejects bodies on mutating JSON routes that do not declare a JSON
// content type. Multipart uploads are let through.
func JSONOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") && !strings.HasPrefix(ct, "multipart/form-data") {
				writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported content type"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
