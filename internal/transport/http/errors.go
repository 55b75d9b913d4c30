package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

const (
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidItemType    = "invalid_item_type"
	codeInvalidID          = "invalid_id"
	codeInvalidCapacity    = "invalid_capacity"
	codeItemNameRequired   = "item_name_required"
	codeHolderRequired     = "holder_id_required"
	codeCapacityExceeded   = "capacity_exceeded"
	codeItemNotFound       = "item_not_found"
	codeItemAlreadyExists  = "item_already_exists"
	codeHoldNotFound       = "hold_not_found"
	codeForbidden          = "forbidden"
	codeHoldExpired        = "hold_expired"
	codeHoldReleased       = "hold_released"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps ledger and catalog errors onto the API's status
// codes: 409 for a full item, 403 for someone else's hold, 410 for a hold
// that died before payment finished.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrNotHoldOwner):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusGone, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrHoldReleased):
		writeError(w, http.StatusConflict, codeHoldReleased, err.Error())
	case errors.Is(err, domain.ErrItemAlreadyExists):
		writeError(w, http.StatusConflict, codeItemAlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidItemType):
		writeError(w, http.StatusBadRequest, codeInvalidItemType, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrItemNameRequired):
		writeError(w, http.StatusBadRequest, codeItemNameRequired, err.Error())
	case errors.Is(err, domain.ErrHolderRequired):
		writeError(w, http.StatusBadRequest, codeHolderRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
