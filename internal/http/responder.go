package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"schemabridge/internal/apperr"
	"schemabridge/internal/db"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Hint    string `json:"hint,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorHint(w, status, code, message, "")
}

func writeErrorHint(w http.ResponseWriter, status int, code, message, hint string) {
	body := errorBody{}
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Hint = hint
	writeJSON(w, status, body)
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeSchemaMissing:        http.StatusNotFound,
	apperr.CodeConnectionUnknown:    http.StatusNotFound,
	apperr.CodeSchemaExisting:       http.StatusConflict,
	apperr.CodeConnectionExisting:   http.StatusConflict,
	apperr.CodeUpdatePayloadMissing: http.StatusBadRequest,
	apperr.CodeRawUnsupported:       http.StatusBadRequest,
	apperr.CodeDocumentMissingID:    http.StatusUnprocessableEntity,
	apperr.CodeAdapterMissing:       http.StatusServiceUnavailable,
	apperr.CodeSchemaConfiguration:  http.StatusInternalServerError,
	apperr.CodeInvalidConfig:        http.StatusInternalServerError,
}

// writeFailure renders err. Taxonomy errors keep their code and hint;
// duplicate keys become 409; anything else is logged and reported as
// fallbackCode without leaking the driver message.
func writeFailure(w http.ResponseWriter, logger requestLogger, err error, fallbackCode, fallbackMessage string) {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeErrorHint(w, status, string(appErr.Code), appErr.Message, appErr.Hint)
	case errors.Is(err, db.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "duplicate_key", "a document with the same key already exists")
	case errors.Is(err, db.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "not_found", "document not found")
	default:
		logger.Error(fallbackMessage, "error", err)
		writeError(w, http.StatusInternalServerError, fallbackCode, fallbackMessage)
	}
}
