package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/services/orders"
	"github.com/thriftline/marketplace/internal/httputil"
)

func (h *handler) registerOrderRoutes(api *mux.Router) {
	api.Handle("/orders", h.authed(h.listOrders)).Methods(http.MethodGet)
	api.Handle("/orders", h.authed(h.createOrder)).Methods(http.MethodPost)
	api.Handle("/orders/{id}", h.authed(h.getOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/status", h.authed(h.updateOrderStatus)).Methods(http.MethodPut)
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.app.Orders.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orEmpty(items))
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request, userID string) {
	o, err := h.app.Orders.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req orderRequest
	if err := h.decode(w, r, &req, "Invalid order data"); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.app.Orders.Create(r.Context(), userID, orders.Checkout{
		Lines:           req.toLines(),
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var req orderStatusRequest
	if err := h.decode(w, r, &req, "Invalid order status"); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.app.Orders.UpdateStatus(r.Context(), userID, mux.Vars(r)["id"], order.Status(req.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}
