package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/httputil"
)

func (h *handler) registerProductRoutes(api *mux.Router) {
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.Handle("/products", h.authed(h.createProduct)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	api.Handle("/products/{id}", h.authed(h.updateProduct)).Methods(http.MethodPut)
	api.Handle("/products/{id}", h.authed(h.deleteProduct)).Methods(http.MethodDelete)
	api.Handle("/my-products", h.authed(h.myProducts)).Methods(http.MethodGet)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := product.Filter{
		Category: product.Category(q.Get("category")),
		Search:   q.Get("search"),
		SellerID: q.Get("sellerId"),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		h.fail(w, r, err)
		return
	}

	items, err := h.app.Catalog.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orEmpty(items))
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request, userID string) {
	var req productRequest
	if err := h.decode(w, r, &req, "Invalid product data"); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.app.Catalog.Create(r.Context(), userID, req.toProduct())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request, userID string) {
	id := mux.Vars(r)["id"]
	// Missing and foreign listings are reported before the body is looked at.
	if err := h.app.Catalog.Authorize(r.Context(), userID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	var req productUpdateRequest
	if err := h.decode(w, r, &req, "Invalid product data"); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.app.Catalog.Update(r.Context(), userID, id, req.toUpdate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.app.Catalog.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *handler) myProducts(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.app.Catalog.List(r.Context(), product.Filter{SellerID: userID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orEmpty(items))
}
