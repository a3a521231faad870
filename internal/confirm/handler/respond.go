package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"egress/pkg/domainerrors"
)

// writeError translates domain errors into the JSON error envelope every
// endpoint shares.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := domainerrors.CodeInternal
	message := "internal error"

	var de *domainerrors.Error
	if errors.As(err, &de) {
		status = domainerrors.ToHTTPStatus(de.Code)
		code = de.Code
		message = de.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
