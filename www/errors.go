package www

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wattshare/wattshare-go/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func readJSON(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return domain.Validation("request body is not valid JSON")
	}
	return nil
}
