package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreseller_back_end/internal/cache"
	"podreseller_back_end/internal/handlers/auth"
	"podreseller_back_end/internal/handlers/cart"
	"podreseller_back_end/internal/handlers/payment"
	"podreseller_back_end/internal/handlers/product"
	"podreseller_back_end/internal/handlers/user"
	"podreseller_back_end/internal/metrics"
	"podreseller_back_end/internal/middleware"
	"podreseller_back_end/internal/models"
	"podreseller_back_end/internal/testutil"
	"podreseller_back_end/internal/utils"
)

type app struct {
	engine *gin.Engine
	store  *testutil.Store
	tokens *utils.TokenService
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewStore()
	tokens, err := utils.NewTokenService("routes-secret")
	require.NoError(t, err)
	roles := cache.NewCachedUsers(nil, store.Users())
	feed := testutil.NewCartFeed()

	d := Deps{
		Auth:     middleware.NewAuthorizer(tokens, roles),
		Tokens:   auth.NewHandler(tokens),
		Products: product.NewHandler(store.Products(), testutil.NewIndex(), &testutil.Images{}),
		Carts:    cart.NewHandler(store.Carts(), feed),
		Users:    user.NewHandler(store.Users(), roles),
		Payments: payment.NewHandler(store.Payments(), &testutil.Gateway{}, nil, feed, nil),
		Metrics:  metrics.New(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &app{engine: NewEngine(log, []string{"*"}, d), store: store, tokens: tokens}
}

func (a *app) call(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := a.tokens.Issue(email, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w := a.call(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PodReseller Server Working", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestCategoryListingReturnsExactSubset(t *testing.T) {
	a := newApp(t)
	a.store.Users().Seed(models.User{Email: "seller@example.com", Seller: true})

	w := a.call(t, http.MethodPost, "/products", "seller@example.com",
		models.Product{Category: "boxed-pods", Name: "Mint", Price: 12})
	require.Equal(t, http.StatusOK, w.Code)
	a.call(t, http.MethodPost, "/products", "seller@example.com", models.Product{Category: "loose-pods", Name: "Berry"})

	var boxed []models.Product
	require.NoError(t, json.Unmarshal(a.call(t, http.MethodGet, "/products/boxed-pods", "", nil).Body.Bytes(), &boxed))
	require.Len(t, boxed, 1)
	assert.Equal(t, "Mint", boxed[0].Name)

	w = a.call(t, http.MethodGet, "/products/other-category", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProductByIDNeedsIdentity(t *testing.T) {
	a := newApp(t)
	seeded := a.store.Products().Seed(models.Product{Name: "Mint"})
	path := "/products/" + seeded[0].ID.Hex()

	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, path, "anyone@example.com", nil).Code)
}

func TestSellerRoutesRejectBuyers(t *testing.T) {
	a := newApp(t)
	a.store.Users().Seed(models.User{Email: "buyer@example.com"})

	w := a.call(t, http.MethodPost, "/products", "buyer@example.com", models.Product{Name: "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"forbidden access"}`, w.Body.String())

	w = a.call(t, http.MethodGet, "/myProducts?sellerName=buyer", "buyer@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesWithoutToken(t *testing.T) {
	a := newApp(t)
	for _, rt := range []struct{ method, path string }{
		{http.MethodPost, "/products"},
		{http.MethodDelete, "/products/65f000000000000000000000"},
		{http.MethodGet, "/myProducts"},
		{http.MethodDelete, "/users/65f000000000000000000000"},
		{http.MethodGet, "/users/admin/a@example.com"},
		{http.MethodPatch, "/users/admin/65f000000000000000000000"},
		{http.MethodGet, "/users/seller/a@example.com"},
		{http.MethodGet, "/payments/a@example.com"},
		{http.MethodGet, "/carts/ws"},
	} {
		w := a.call(t, rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.method+" "+rt.path)
		assert.JSONEq(t, `{"message":"unauthorized access"}`, w.Body.String())
	}
}

func TestSelfOnlyRoutes(t *testing.T) {
	a := newApp(t)
	for _, path := range []string{"/users/admin/b@example.com", "/users/seller/b@example.com", "/payments/b@example.com"} {
		assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodGet, path, "a@example.com", nil).Code, path)
	}
	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/payments/a@example.com", "a@example.com", nil).Code)
}

func TestUsersAreIdempotentByEmail(t *testing.T) {
	a := newApp(t)
	a.call(t, http.MethodPost, "/users", "", models.User{Email: "twice@example.com"})
	w := a.call(t, http.MethodPost, "/users", "", models.User{Email: "twice@example.com"})
	assert.JSONEq(t, `{"message":"User Already Exist","insertedId":null}`, w.Body.String())

	var users []models.User
	require.NoError(t, json.Unmarshal(a.call(t, http.MethodGet, "/users", "", nil).Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

func TestAdminPromotion(t *testing.T) {
	a := newApp(t)
	a.store.Users().Seed(models.User{Email: "boss@example.com", Role: models.RoleAdmin})
	target := a.store.Users().Seed(models.User{Email: "user@example.com"})[0]

	w := a.call(t, http.MethodGet, "/users/admin/user@example.com", "user@example.com", nil)
	assert.JSONEq(t, `{"admin":false}`, w.Body.String())

	w = a.call(t, http.MethodPatch, "/users/admin/"+target.ID.Hex(), "user@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.call(t, http.MethodPatch, "/users/admin/"+target.ID.Hex(), "boss@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.call(t, http.MethodGet, "/users/admin/user@example.com", "user@example.com", nil)
	assert.JSONEq(t, `{"admin":true}`, w.Body.String())
}

func TestSignUpCannotClaimAdmin(t *testing.T) {
	a := newApp(t)
	w := a.call(t, http.MethodPost, "/users", "", map[string]any{"email": "mallory@example.com", "role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.call(t, http.MethodGet, "/users/admin/mallory@example.com", "mallory@example.com", nil)
	assert.JSONEq(t, `{"admin":false}`, w.Body.String())

	victim := a.store.Users().Seed(models.User{Email: "victim@example.com"})[0]
	w = a.call(t, http.MethodDelete, "/users/"+victim.ID.Hex(), "mallory@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCartDeleteRemovesOnlyThatItem(t *testing.T) {
	a := newApp(t)
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		var res models.InsertResult
		w := a.call(t, http.MethodPost, "/carts", "", models.CartItem{Email: "buyer@example.com", Name: name})
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		ids = append(ids, res.InsertedID.(string))
	}

	a.call(t, http.MethodDelete, "/carts/"+ids[1], "", nil)

	items, err := a.store.Carts().ByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "c", items[1].Name)

	assert.JSONEq(t, `[]`, a.call(t, http.MethodGet, "/carts", "", nil).Body.String())
}

func TestCheckoutRemovesExactlyThePaidItems(t *testing.T) {
	a := newApp(t)
	var ids []string
	for i := 0; i < 4; i++ {
		item := &models.CartItem{Email: "buyer@example.com"}
		_, err := a.store.Carts().Insert(context.Background(), item)
		require.NoError(t, err)
		ids = append(ids, item.ID.Hex())
	}

	w := a.call(t, http.MethodPost, "/payments", "", models.Payment{Email: "buyer@example.com", Amount: 40, CartIDs: ids[:3]})
	require.Equal(t, http.StatusOK, w.Code)

	var res models.CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(3), res.DeleteResult.DeletedCount)

	payments, err := a.store.Payments().ByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, ids[:3], payments[0].CartIDs)

	left, err := a.store.Carts().ByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[3], left[0].ID.Hex())
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t)
	a.call(t, http.MethodGet, "/products", "", nil)

	w := a.call(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `podreseller_http_requests_total`)
}
