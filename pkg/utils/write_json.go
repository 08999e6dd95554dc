package utils

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response. Success is false only for
// business-rule failures.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Errors  interface{} `json:"errors"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeEnvelope(w, statusCode, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteJSONWithWarnings is WriteJSON for operations that succeeded but carry
// non-fatal problems, such as a reminder email that could not be queued.
func WriteJSONWithWarnings(w http.ResponseWriter, statusCode int, message string, data interface{}, warnings map[string]string) {
	env := Envelope{
		Success: true,
		Message: message,
		Data:    data,
	}
	if len(warnings) > 0 {
		env.Errors = warnings
	}
	writeEnvelope(w, statusCode, env)
}

func writeEnvelope(w http.ResponseWriter, statusCode int, env Envelope) {
	if env.Message == "" {
		if env.Success {
			env.Message = "Operation successful"
		} else {
			env.Message = "Operation failed"
		}
	}
	if env.Data == nil {
		env.Data = map[string]interface{}{}
	}
	if env.Errors == nil {
		env.Errors = map[string]interface{}{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(env); err != nil {
		Logger.WithError(err).Error("failed to encode JSON response")
	}
}
