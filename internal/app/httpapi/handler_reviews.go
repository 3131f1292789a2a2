package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/thriftline/marketplace/internal/app/domain/review"
	"github.com/thriftline/marketplace/internal/httputil"
)

func (h *handler) registerReviewRoutes(api *mux.Router) {
	api.HandleFunc("/products/{id}/reviews", h.productReviews).Methods(http.MethodGet)
	api.Handle("/reviews", h.authed(h.createReview)).Methods(http.MethodPost)
}

func (h *handler) productReviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Reviews.ListForProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orEmpty(items))
}

func (h *handler) createReview(w http.ResponseWriter, r *http.Request, userID string) {
	var req reviewRequest
	if err := h.decode(w, r, &req, "Invalid review data"); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.app.Reviews.Create(r.Context(), userID, review.Review{
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}
