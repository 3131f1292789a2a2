package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/thriftline/marketplace/internal/app"
	"github.com/thriftline/marketplace/pkg/logger"
)

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{
		SessionSecret: []byte("test-session-secret-0123456789ab"),
	}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	if cfg.AuthRPS == 0 {
		cfg.AuthRPS, cfg.AuthBurst = 1000, 1000
	}
	server := httptest.NewServer(NewHandler(application, cfg, logger.NewNop()))
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, server *httptest.Server) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: server.URL, http: &http.Client{Jar: jar}}
}

func (c *testClient) do(method, path string, body interface{}) (int, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *testClient) object(method, path string, body interface{}, wantStatus int) map[string]interface{} {
	c.t.Helper()
	status, data := c.do(method, path, body)
	require.Equal(c.t, wantStatus, status, string(data))
	var out map[string]interface{}
	require.NoError(c.t, json.Unmarshal(data, &out), string(data))
	return out
}

func (c *testClient) list(path string) []map[string]interface{} {
	c.t.Helper()
	status, data := c.do(http.MethodGet, path, nil)
	require.Equal(c.t, http.StatusOK, status, string(data))
	var out []map[string]interface{}
	require.NoError(c.t, json.Unmarshal(data, &out), string(data))
	return out
}

func (c *testClient) register(username, email, password string) map[string]interface{} {
	c.t.Helper()
	return c.object(http.MethodPost, "/api/register", map[string]interface{}{
		"username": username, "email": email, "password": password,
	}, http.StatusCreated)
}

func (c *testClient) createJacket() map[string]interface{} {
	c.t.Helper()
	return c.object(http.MethodPost, "/api/products", map[string]interface{}{
		"title":       "Jacket",
		"description": "Warm wool jacket",
		"price":       "25.00",
		"category":    "clothing",
		"condition":   "good",
	}, http.StatusCreated)
}

func ids(items []map[string]interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item["id"].(string))
	}
	return out
}

func TestAuthScenario(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)

	registered := alice.register("alice", "a@x.com", "pw123")
	assert.NotEmpty(t, registered["id"])
	assert.NotContains(t, registered, "password")

	me := alice.object(http.MethodGet, "/api/user", nil, http.StatusOK)
	assert.Equal(t, "alice", me["username"])

	other := newClient(t, server)
	body := other.object(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "wrong"}, http.StatusUnauthorized)
	assert.Equal(t, "Invalid username or password", body["message"])
	body = other.object(http.MethodPost, "/api/login", map[string]string{"username": "nobody", "password": "wrong"}, http.StatusUnauthorized)
	assert.Equal(t, "Invalid username or password", body["message"])

	loggedIn := other.object(http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "pw123"}, http.StatusOK)
	assert.Equal(t, registered["id"], loggedIn["id"])
	assert.NotContains(t, loggedIn, "password")

	dup := newClient(t, server).object(http.MethodPost, "/api/register", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "pw",
	}, http.StatusBadRequest)
	assert.Equal(t, "Username already exists", dup["message"])

	dupEmail := newClient(t, server).object(http.MethodPost, "/api/register", map[string]string{
		"username": "alice2", "email": "a@x.com", "password": "pw",
	}, http.StatusBadRequest)
	assert.Equal(t, "Email already exists", dupEmail["message"])

	anon := newClient(t, server).object(http.MethodGet, "/api/user", nil, http.StatusUnauthorized)
	assert.Equal(t, "Authentication required", anon["message"])

	other.object(http.MethodPost, "/api/logout", nil, http.StatusOK)
	other.object(http.MethodGet, "/api/user", nil, http.StatusUnauthorized)
	// alice's own session is unaffected by the other client's logout
	alice.object(http.MethodGet, "/api/user", nil, http.StatusOK)
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t, Config{})
	c := newClient(t, server)

	body := c.object(http.MethodPost, "/api/register", map[string]string{"username": "bob", "email": "not-an-email"}, http.StatusBadRequest)
	assert.Equal(t, "Invalid registration data", body["message"])
	errs, ok := body["errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 2)

	blank := c.object(http.MethodPost, "/api/register", map[string]string{"username": "   ", "email": "w@x.com", "password": "p"}, http.StatusBadRequest)
	assert.Equal(t, "Invalid registration data", blank["message"])
	issues := blank["errors"].([]interface{})
	require.Len(t, issues, 1)
	assert.Equal(t, []interface{}{"username"}, issues[0].(map[string]interface{})["path"])
}

func TestUpdateProfile(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	alice.register("alice", "a@x.com", "pw123")
	newClient(t, server).register("bob", "b@x.com", "pw123")

	updated := alice.object(http.MethodPut, "/api/user", map[string]string{"firstName": "Alice", "avatar": "https://img/a.png"}, http.StatusOK)
	assert.Equal(t, "Alice", updated["firstName"])
	assert.Equal(t, "https://img/a.png", updated["avatar"])

	body := alice.object(http.MethodPut, "/api/user", map[string]string{"email": "b@x.com"}, http.StatusBadRequest)
	assert.Equal(t, "Email already exists", body["message"])
}

func TestProductScenario(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	aliceUser := alice.register("alice", "a@x.com", "pw123")
	bob := newClient(t, server)
	bob.register("bob", "b@x.com", "pw123")

	created := alice.object(http.MethodPost, "/api/products", map[string]interface{}{
		"title":       "Jacket",
		"description": "Warm wool jacket",
		"price":       "25.00",
		"category":    "clothing",
		"condition":   "good",
		"sellerId":    "someone-else",
		"views":       99,
	}, http.StatusCreated)
	productID := created["id"].(string)
	assert.Equal(t, aliceUser["id"], created["sellerId"])
	assert.Equal(t, true, created["isActive"])
	assert.EqualValues(t, 0, created["views"])
	assert.Equal(t, "25.00", created["price"])

	anon := newClient(t, server)
	listed := anon.list("/api/products")
	assert.Contains(t, ids(listed), productID)
	assert.Equal(t, "alice", listed[0]["seller"].(map[string]interface{})["username"])

	first := anon.object(http.MethodGet, "/api/products/"+productID, nil, http.StatusOK)
	assert.EqualValues(t, 1, first["views"])
	second := anon.object(http.MethodGet, "/api/products/"+productID, nil, http.StatusOK)
	assert.EqualValues(t, 2, second["views"])

	anon.object(http.MethodGet, "/api/products/does-not-exist", nil, http.StatusNotFound)

	body := bob.object(http.MethodPut, "/api/products/"+productID, map[string]string{"title": "Stolen"}, http.StatusForbidden)
	assert.NotEmpty(t, body["message"])
	bob.object(http.MethodPut, "/api/products/"+productID, map[string]string{"price": "abc"}, http.StatusForbidden)
	alice.object(http.MethodPut, "/api/products/nope", map[string]string{"price": "abc"}, http.StatusNotFound)
	bad := alice.object(http.MethodPut, "/api/products/"+productID, map[string]string{"price": "abc"}, http.StatusBadRequest)
	assert.Equal(t, "Invalid product data", bad["message"])
	bob.object(http.MethodDelete, "/api/products/"+productID, nil, http.StatusForbidden)
	unchanged := anon.object(http.MethodGet, "/api/products/"+productID, nil, http.StatusOK)
	assert.Equal(t, "Jacket", unchanged["title"])
	assert.Equal(t, true, unchanged["isActive"])

	updated := alice.object(http.MethodPut, "/api/products/"+productID, map[string]string{"price": "20.50"}, http.StatusOK)
	assert.Equal(t, "20.50", updated["price"])
	assert.Equal(t, "Jacket", updated["title"])

	status, _ := alice.do(http.MethodDelete, "/api/products/"+productID, nil)
	require.Equal(t, http.StatusNoContent, status)

	assert.NotContains(t, ids(anon.list("/api/products")), productID)
	assert.Contains(t, ids(anon.list("/api/products?sellerId="+aliceUser["id"].(string))), productID)

	mine := alice.list("/api/my-products")
	require.Len(t, mine, 1)
	assert.Equal(t, false, mine[0]["isActive"])

	anon.object(http.MethodPut, "/api/products/"+productID, map[string]string{"title": "x"}, http.StatusUnauthorized)
	anon.object(http.MethodGet, "/api/my-products", nil, http.StatusUnauthorized)
}

func TestProductFiltersAndValidation(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	alice.register("alice", "a@x.com", "pw123")

	alice.createJacket()
	alice.object(http.MethodPost, "/api/products", map[string]interface{}{
		"title": "Guitar", "description": "Acoustic, barely played", "price": "120",
		"category": "music", "condition": "excellent", "images": []string{"cover.jpg", "side.jpg"},
	}, http.StatusCreated)

	all := alice.list("/api/products")
	require.Len(t, all, 2)
	assert.Equal(t, "Guitar", all[0]["title"], "newest first")

	music := alice.list("/api/products?category=music")
	require.Len(t, music, 1)
	assert.Equal(t, []interface{}{"cover.jpg", "side.jpg"}, music[0]["images"])

	search := alice.list("/api/products?search=WOOL")
	require.Len(t, search, 1)
	assert.Equal(t, "Jacket", search[0]["title"])

	paged := alice.list("/api/products?limit=1&offset=1")
	require.Len(t, paged, 1)
	assert.Equal(t, "Jacket", paged[0]["title"])

	alice.object(http.MethodGet, "/api/products?limit=abc", nil, http.StatusBadRequest)
	alice.object(http.MethodGet, "/api/products?offset=-1", nil, http.StatusBadRequest)
	alice.object(http.MethodGet, "/api/products?category=cars", nil, http.StatusBadRequest)

	body := alice.object(http.MethodPost, "/api/products", map[string]interface{}{
		"description": "no title", "price": "1.999", "category": "cars", "condition": "good",
	}, http.StatusBadRequest)
	assert.Equal(t, "Invalid product data", body["message"])
	paths := map[string]bool{}
	for _, raw := range body["errors"].([]interface{}) {
		issue := raw.(map[string]interface{})
		path := issue["path"].([]interface{})
		paths[path[0].(string)] = true
	}
	assert.Equal(t, map[string]bool{"title": true, "price": true, "category": true}, paths)

	body = alice.object(http.MethodPost, "/api/products", map[string]interface{}{
		"title": "x", "description": "y", "price": "1", "category": "home", "condition": "good", "colour": "red",
	}, http.StatusBadRequest)
	assert.Equal(t, "Invalid product data", body["message"])
}

func TestCartScenario(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	alice.register("alice", "a@x.com", "pw123")
	jacket := alice.createJacket()
	productID := jacket["id"].(string)

	bob := newClient(t, server)
	bob.register("bob", "b@x.com", "pw123")

	bob.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": productID, "quantity": 1}, http.StatusCreated)
	merged := bob.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": productID, "quantity": 2}, http.StatusCreated)
	assert.EqualValues(t, 3, merged["quantity"])

	cart := bob.list("/api/cart")
	require.Len(t, cart, 1)
	assert.EqualValues(t, 3, cart[0]["quantity"])
	assert.Equal(t, "Jacket", cart[0]["product"].(map[string]interface{})["title"])
	itemID := cart[0]["id"].(string)

	alice.object(http.MethodPut, "/api/cart/"+itemID, map[string]int{"quantity": 9}, http.StatusForbidden)
	status, _ := alice.do(http.MethodDelete, "/api/cart/"+itemID, nil)
	assert.Equal(t, http.StatusForbidden, status)
	alice.object(http.MethodPut, "/api/cart/missing", map[string]int{"quantity": 1}, http.StatusNotFound)

	body := bob.object(http.MethodPut, "/api/cart/"+itemID, map[string]int{"quantity": 0}, http.StatusBadRequest)
	assert.Equal(t, "Invalid quantity", body["message"])

	patched := bob.object(http.MethodPatch, "/api/cart/"+itemID, map[string]int{"quantity": 4}, http.StatusOK)
	assert.EqualValues(t, 4, patched["quantity"])

	defaulted := alice.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": productID}, http.StatusCreated)
	assert.EqualValues(t, 1, defaulted["quantity"])

	bob.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": "nope"}, http.StatusBadRequest)

	status, _ = bob.do(http.MethodDelete, "/api/cart/"+itemID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, bob.list("/api/cart"))

	status, _ = alice.do(http.MethodDelete, "/api/cart", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, alice.list("/api/cart"))

	newClient(t, server).object(http.MethodGet, "/api/cart", nil, http.StatusUnauthorized)
}

func TestCheckoutScenario(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	alice.register("alice", "a@x.com", "pw123")
	productID := alice.createJacket()["id"].(string)

	bob := newClient(t, server)
	bob.register("bob", "b@x.com", "pw123")
	bob.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": productID, "quantity": 1}, http.StatusCreated)
	bob.object(http.MethodPost, "/api/cart", map[string]interface{}{"productId": productID, "quantity": 2}, http.StatusCreated)

	body := bob.object(http.MethodPost, "/api/orders", map[string]interface{}{"items": []interface{}{}}, http.StatusBadRequest)
	assert.NotEmpty(t, body["message"])
	assert.Empty(t, bob.list("/api/orders"))
	require.Len(t, bob.list("/api/cart"), 1, "failed checkout keeps the cart")

	created := bob.object(http.MethodPost, "/api/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": productID, "quantity": 3, "price": "25.00"},
		},
		"shippingAddress": "1 Main St",
	}, http.StatusCreated)
	assert.Equal(t, "75.00", created["totalAmount"])
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "1 Main St", created["shippingAddress"])
	assert.NotContains(t, created, "orderItems")
	orderID := created["id"].(string)

	assert.Empty(t, bob.list("/api/cart"))

	orders := bob.list("/api/orders")
	require.Len(t, orders, 1)
	items := orders[0]["orderItems"].([]interface{})
	require.Len(t, items, 1)
	line := items[0].(map[string]interface{})
	assert.Equal(t, "25.00", line["price"])
	assert.EqualValues(t, 3, line["quantity"])
	assert.Equal(t, "Jacket", line["product"].(map[string]interface{})["title"])

	// later price changes do not touch the snapshot
	alice.object(http.MethodPut, "/api/products/"+productID, map[string]string{"price": "30.00"}, http.StatusOK)
	got := bob.object(http.MethodGet, "/api/orders/"+orderID, nil, http.StatusOK)
	assert.Equal(t, "25.00", got["orderItems"].([]interface{})[0].(map[string]interface{})["price"])

	alice.object(http.MethodGet, "/api/orders/"+orderID, nil, http.StatusForbidden)
	bob.object(http.MethodGet, "/api/orders/unknown", nil, http.StatusNotFound)
	assert.Empty(t, alice.list("/api/orders"))

	shipped := bob.object(http.MethodPut, "/api/orders/"+orderID+"/status", map[string]string{"status": "shipped"}, http.StatusOK)
	assert.Equal(t, "shipped", shipped["status"])
	bob.object(http.MethodPut, "/api/orders/"+orderID+"/status", map[string]string{"status": "lost"}, http.StatusBadRequest)
	alice.object(http.MethodPut, "/api/orders/"+orderID+"/status", map[string]string{"status": "cancelled"}, http.StatusForbidden)

	body = bob.object(http.MethodPost, "/api/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"productId": productID, "quantity": 0, "price": "-1"}},
	}, http.StatusBadRequest)
	assert.Len(t, body["errors"], 2)
}

func TestReviewScenario(t *testing.T) {
	server := newTestServer(t, Config{})
	alice := newClient(t, server)
	alice.register("alice", "a@x.com", "pw123")
	productID := alice.createJacket()["id"].(string)

	bob := newClient(t, server)
	bob.register("bob", "b@x.com", "pw123")
	orderID := bob.object(http.MethodPost, "/api/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"productId": productID, "quantity": 1, "price": "25.00"}},
	}, http.StatusCreated)["id"].(string)

	first := bob.object(http.MethodPost, "/api/reviews", map[string]interface{}{
		"productId": productID, "orderId": orderID, "rating": 4, "comment": "Nice",
	}, http.StatusCreated)
	assert.EqualValues(t, 4, first["rating"])
	bob.object(http.MethodPost, "/api/reviews", map[string]interface{}{
		"productId": productID, "orderId": orderID, "rating": 5,
	}, http.StatusCreated)

	reviews := newClient(t, server).list("/api/products/" + productID + "/reviews")
	require.Len(t, reviews, 2)
	assert.EqualValues(t, 5, reviews[0]["rating"], "newest first")

	body := bob.object(http.MethodPost, "/api/reviews", map[string]interface{}{"productId": productID}, http.StatusBadRequest)
	assert.Equal(t, "Invalid review data", body["message"])
	bob.object(http.MethodPost, "/api/reviews", map[string]interface{}{
		"productId": productID, "orderId": "missing", "rating": 3,
	}, http.StatusBadRequest)
	newClient(t, server).object(http.MethodPost, "/api/reviews", map[string]interface{}{
		"productId": productID, "orderId": orderID, "rating": 3,
	}, http.StatusUnauthorized)

	assert.Empty(t, bob.list("/api/products/unknown/reviews"))
}

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t, Config{})
	c := newClient(t, server)

	health := c.object(http.MethodGet, "/healthz", nil, http.StatusOK)
	assert.Equal(t, "ok", health["status"])

	c.list("/api/products")
	status, data := c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `marketplace_http_responses_total{code="200",method="GET",route="/api/products"}`)

	c.object(http.MethodGet, "/api/nowhere", nil, http.StatusNotFound)
}

func TestLoginRateLimited(t *testing.T) {
	server := newTestServer(t, Config{AuthRPS: 1, AuthBurst: 1})
	c := newClient(t, server)

	c.object(http.MethodPost, "/api/login", map[string]string{"username": "x", "password": "y"}, http.StatusUnauthorized)
	body := c.object(http.MethodPost, "/api/login", map[string]string{"username": "x", "password": "y"}, http.StatusTooManyRequests)
	assert.NotEmpty(t, body["message"])
}

func TestTraceIDHeader(t *testing.T) {
	server := newTestServer(t, Config{})
	resp, err := http.Get(server.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}
