package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/insominiac/dancelink-staging-sub000/internal/app"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// AvailabilityProvider is the read-side interface, satisfied by the
// availability service directly or by its Redis cache wrapper.
type AvailabilityProvider interface {
	SpotsLeft(ctx context.Context, key domain.ItemKey) (app.Availability, error)
}

// HandleAvailability returns the handler for
// GET /items/{itemType}/{itemId}/availability.
func HandleAvailability(svc AvailabilityProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		itemType, err := domain.ParseItemType(vars["itemType"])
		if err != nil {
			writeDomainError(w, err)
			return
		}

		avail, err := svc.SpotsLeft(r.Context(), domain.ItemKey{Type: itemType, ID: vars["itemId"]})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, availabilityResponse{
			ItemType:  avail.ItemType,
			ItemID:    avail.ItemID,
			Capacity:  avail.Capacity,
			Confirmed: avail.Confirmed,
			Held:      avail.Held,
			SpotsLeft: avail.SpotsLeft,
		})
	}
}

type availabilityResponse struct {
	ItemType  string `json:"item_type"`
	ItemID    string `json:"item_id"`
	Capacity  int    `json:"capacity"`
	Confirmed int    `json:"confirmed"`
	Held      int    `json:"held"`
	SpotsLeft int    `json:"spots_left"`
}
