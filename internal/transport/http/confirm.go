package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// HoldConfirmer is the minimal interface needed to confirm a hold.
type HoldConfirmer interface {
	Confirm(ctx context.Context, holdID, holderID string) error
}

// HandleConfirm returns the handler for POST /holds/{holdId}/confirm. A hold
// that expired before payment completed answers 410.
func HandleConfirm(svc HoldConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID := mux.Vars(r)["holdId"]

		var req holderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.Confirm(r.Context(), holdID, req.HolderID); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{Status: "confirmed"})
	}
}
