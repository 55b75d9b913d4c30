package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/insominiac/dancelink-staging-sub000/internal/app"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// Catalog is the admin-facing item management interface.
type Catalog interface {
	CreateItem(ctx context.Context, in app.CreateItemInput) (domain.Item, error)
	GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
}

// HoldLister exposes an item's hold history for the admin detail view.
type HoldLister interface {
	ListHoldsByItem(ctx context.Context, key domain.ItemKey) ([]domain.Hold, error)
}

// HandleCreateItem returns the handler for POST /admin/items.
func HandleCreateItem(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		item, err := svc.CreateItem(r.Context(), app.CreateItemInput{
			ItemType: req.ItemType,
			ItemID:   req.ItemID,
			Name:     req.Name,
			Capacity: req.Capacity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toItemResponse(item))
	}
}

// HandleListItems returns the handler for GET /admin/items.
func HandleListItems(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListItems(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]itemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, toItemResponse(item))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleGetItem returns the handler for
// GET /admin/items/{itemType}/{itemId}: the item plus its full hold
// history, so a dashboard can tell "still holding" from "timed out".
func HandleGetItem(svc Catalog, holds HoldLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		itemType, err := domain.ParseItemType(vars["itemType"])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		key := domain.ItemKey{Type: itemType, ID: vars["itemId"]}

		item, err := svc.GetItem(r.Context(), key)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		history, err := holds.ListHoldsByItem(r.Context(), key)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := itemDetailResponse{itemResponse: toItemResponse(item)}
		resp.Holds = make([]holdResponse, 0, len(history))
		for _, h := range history {
			resp.Holds = append(resp.Holds, holdResponse{
				ID:        h.ID,
				ItemType:  string(h.Item.Type),
				ItemID:    h.Item.ID,
				HolderID:  h.HolderID,
				Status:    string(h.Status),
				CreatedAt: h.CreatedAt,
				ExpiresAt: h.ExpiresAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createItemRequest struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type itemResponse struct {
	ItemType  string `json:"item_type"`
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Confirmed int    `json:"confirmed"`
}

type itemDetailResponse struct {
	itemResponse
	Holds []holdResponse `json:"holds"`
}

func toItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ItemType:  string(item.Key.Type),
		ItemID:    item.Key.ID,
		Name:      item.Name,
		Capacity:  item.Capacity,
		Confirmed: item.ConfirmedCount,
	}
}
