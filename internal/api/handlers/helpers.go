package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"billbuddy/pkg/utils"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON body into dst, rejecting unknown fields. It writes
// the 400 itself and returns false on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			utils.WriteError(w, "request body is empty", http.StatusBadRequest)
			return false
		}
		utils.WriteError(w, "invalid or unexpected fields in body", http.StatusBadRequest)
		return false
	}
	return true
}

// PathID parses the named path value as a positive id.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// CallerID returns the authenticated user or writes a 401.
func CallerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := utils.CallerID(r.Context())
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// QueryInt reads a positive integer query parameter, or fallback.
func QueryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Health reports whether the database answers a ping.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				utils.Logger.WithError(err).Warn("health check ping failed")
				utils.WriteError(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, "ok", nil)
	}
}
