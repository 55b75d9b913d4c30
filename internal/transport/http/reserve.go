package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/insominiac/dancelink-staging-sub000/internal/app"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// Reserver is the minimal interface needed to create a hold.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Hold, error)
}

// HandleReserve returns the handler for POST /holds.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hold, err := svc.Reserve(r.Context(), app.ReserveInput{
			ItemType: req.ItemType,
			ItemID:   req.ItemID,
			HolderID: req.HolderID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, holdResponse{
			ID:        hold.ID,
			ItemType:  string(hold.Item.Type),
			ItemID:    hold.Item.ID,
			HolderID:  hold.HolderID,
			Status:    string(hold.Status),
			CreatedAt: hold.CreatedAt,
			ExpiresAt: hold.ExpiresAt,
		})
	}
}

type reserveRequest struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	HolderID string `json:"holder_id"`
}

type holdResponse struct {
	ID        string    `json:"id"`
	ItemType  string    `json:"item_type"`
	ItemID    string    `json:"item_id"`
	HolderID  string    `json:"holder_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
