package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/thriftline/marketplace/internal/httputil"
)

func (h *handler) registerCartRoutes(api *mux.Router) {
	api.Handle("/cart", h.authed(h.getCart)).Methods(http.MethodGet)
	api.Handle("/cart", h.authed(h.addToCart)).Methods(http.MethodPost)
	api.Handle("/cart", h.authed(h.clearCart)).Methods(http.MethodDelete)
	api.Handle("/cart/{id}", h.authed(h.updateCartItem)).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/cart/{id}", h.authed(h.removeCartItem)).Methods(http.MethodDelete)
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.app.Cart.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orEmpty(items))
}

func (h *handler) addToCart(w http.ResponseWriter, r *http.Request, userID string) {
	var req cartAddRequest
	if err := h.decode(w, r, &req, "Invalid cart item data"); err != nil {
		h.fail(w, r, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	item, err := h.app.Cart.Add(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	var req cartUpdateRequest
	if err := h.decode(w, r, &req, "Invalid quantity"); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.app.Cart.Update(r.Context(), userID, mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.app.Cart.Remove(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.app.Cart.Clear(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.NoContent(w)
}
