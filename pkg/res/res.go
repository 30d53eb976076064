package res

import (
	"net/http"

	"github.com/goccy/go-json"

	"query-api/pkg/logger"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Json(w http.ResponseWriter, data any, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Status: StatusError, Message: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}

func Error(w http.ResponseWriter, message string, statusCode int) {
	Json(w, ErrorResponse{Status: StatusError, Message: message}, statusCode)
}
