package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// HoldReleaser is the minimal interface needed to release a hold.
type HoldReleaser interface {
	Release(ctx context.Context, holdID, holderID string) error
}

// HandleRelease returns the handler for POST /holds/{holdId}/release.
func HandleRelease(svc HoldReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID := mux.Vars(r)["holdId"]

		var req holderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.Release(r.Context(), holdID, req.HolderID); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{Status: "released"})
	}
}

type holderRequest struct {
	HolderID string `json:"holder_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}
