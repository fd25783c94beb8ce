package router

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"classifieds/internal/auth"
	"classifieds/internal/config"
	"classifieds/internal/db"
	apperrors "classifieds/internal/errors"
	"classifieds/internal/handler"
	"classifieds/internal/logger"
	"classifieds/internal/metrics"
	"classifieds/internal/payment"
	"classifieds/internal/repository"
	"classifieds/internal/service"
)

const testWebhookSecret = "whsec_router_test"

// fakeGateway answers checkout calls locally and verifies webhooks with the
// real Stripe signature scheme.
type fakeGateway struct {
	*payment.StripeGateway
	paymentStatus atomic.Value
	getCalls      atomic.Int32
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{StripeGateway: payment.NewStripeGateway("sk_test_unused", testWebhookSecret, nil)}
	g.paymentStatus.Store("unpaid")
	return g
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	id := "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.example/" + id, PaymentStatus: "unpaid", Status: "open"}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
	g.getCalls.Add(1)
	status := g.paymentStatus.Load().(string)
	checkout := "open"
	if status == "paid" {
		checkout = "complete"
	}
	return &payment.CheckoutSession{ID: sessionID, PaymentStatus: status, Status: checkout}, nil
}

type fakeIdentity struct{}

func (fakeIdentity) Exchange(ctx context.Context, sessionID string) (*auth.Identity, error) {
	if !strings.HasPrefix(sessionID, "good-") {
		return nil, fmt.Errorf("%w: status 404", apperrors.ErrIdentityExchange)
	}
	return &auth.Identity{
		Email:        "sso@example.com",
		Name:         "SSO User",
		SessionToken: "provider-" + sessionID,
	}, nil
}

type testServer struct {
	e       *echo.Echo
	gateway *fakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gormDB, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	adRepo := repository.NewAdRepository(gormDB)
	txnRepo := repository.NewTransactionRepository(gormDB)

	log := logger.Discard()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	gateway := newFakeGateway()

	authService := service.NewAuthService(userRepo, sessionRepo, auth.NewTokenIssuer("test-secret"),
		auth.NewSessionCache(nil), fakeIdentity{}, collector)
	listingService := service.NewListingService(adRepo, nil, collector)
	paymentService := service.NewPaymentService(txnRepo, adRepo, gateway, nil, collector, log)

	e := echo.New()
	Register(e, &config.Config{}, log, collector, reg, authService,
		handler.NewAuthHandler(authService, false),
		handler.NewAdHandler(listingService),
		handler.NewPaymentHandler(paymentService),
	)
	return &testServer{e: e, gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "secret123", "name": "Tester",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](t, rec).SessionToken
}

func adBody(images int) map[string]interface{} {
	urls := make([]string, images)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://img.example/%d.jpg", i)
	}
	return map[string]interface{}{
		"title":       "Road bike",
		"description": "Carbon frame",
		"category":    "vehicles",
		"subcategory": "Bicycles",
		"price":       450.5,
		"images":      urls,
	}
}

func TestFreeAdLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "seller@example.com")

	rec := s.do(t, http.MethodPost, "/api/ads", adBody(5), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ad := decode[handler.AdResponse](t, rec)
	assert.Regexp(t, `^ad_[0-9a-f]{12}$`, ad.AdID)
	assert.Equal(t, "active", ad.Status)
	assert.False(t, ad.IsPaid)
	assert.Equal(t, 450.5, ad.Price)
	assert.WithinDuration(t, ad.CreatedAt.Add(21*24*time.Hour), ad.ExpiresAt, time.Second)

	rec = s.do(t, http.MethodPost, "/api/ads", adBody(6), token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Free ads are limited to 5 images", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodGet, "/api/my-ads", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]handler.AdResponse](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decode[handler.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodGet, "/api/my-ads", nil, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid session", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodGet, "/api/my-ads", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decode[apperrors.ErrorResponse](t, rec).Detail)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "a@example.com", "password": "other", "name": "Again",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@example.com", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[handler.AuthResponse](t, rec)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, login.SessionToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: login.SessionToken})
	meRec := httptest.NewRecorder()
	s.e.ServeHTTP(meRec, req)
	require.Equal(t, http.StatusOK, meRec.Code)
	me := decode[handler.UserResponse](t, meRec)
	assert.Equal(t, "a@example.com", me.Email)
	assert.NotContains(t, meRec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "not-json"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSSOLoginReplacesSessions(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/google/session", map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Session ID required", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/api/auth/google/session", map[string]string{"session_id": "bogus"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/api/auth/google/session", map[string]string{"session_id": "good-1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, "provider-good-1", first.SessionToken)

	rec = s.do(t, http.MethodPost, "/api/auth/google/session", map[string]string{"session_id": "good-2"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, first.UserID, second.UserID)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", nil, first.SessionToken).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/me", nil, second.SessionToken).Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "sso@example.com", "password": "anything"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdOwnershipAndBrowsing(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	other := s.register(t, "other@example.com")

	rec := s.do(t, http.MethodPost, "/api/ads", adBody(1), owner)
	require.Equal(t, http.StatusOK, rec.Code)
	ad := decode[handler.AdResponse](t, rec)

	rec = s.do(t, http.MethodDelete, "/api/ads/"+ad.AdID, nil, other)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPut, "/api/ads/"+ad.AdID, map[string]interface{}{"title": "Stolen"}, other)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/ads/"+ad.AdID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decode[handler.AdResponse](t, rec).Status)

	rec = s.do(t, http.MethodPut, "/api/ads/"+ad.AdID, map[string]interface{}{"title": "Gravel bike", "price": 399}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[handler.AdResponse](t, rec)
	assert.Equal(t, "Gravel bike", updated.Title)
	assert.Equal(t, 399.0, updated.Price)

	rec = s.do(t, http.MethodGet, "/api/ads?search=GRAVEL&category=vehicles", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]handler.AdResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/ads?category=jobs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]handler.AdResponse](t, rec))

	rec = s.do(t, http.MethodGet, "/api/ads?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/ads/"+ad.AdID, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/ads", nil, "")
	assert.Empty(t, decode[[]handler.AdResponse](t, rec))

	rec = s.do(t, http.MethodGet, "/api/ads/"+ad.AdID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", decode[handler.AdResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/ads/ad_missing", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Ad not found", decode[apperrors.ErrorResponse](t, rec).Detail)
}

func TestPremiumUpgradeByPolling(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "buyer@example.com")

	ad := decode[handler.AdResponse](t, s.do(t, http.MethodPost, "/api/ads", adBody(2), token))

	rec := s.do(t, http.MethodPost, "/api/payment/create-session", map[string]interface{}{}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Origin URL required", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodPost, "/api/payment/create-session", map[string]interface{}{
		"ad_id": ad.AdID, "origin_url": "https://shop.example",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkout := decode[handler.CheckoutResponse](t, rec)
	require.NotEmpty(t, checkout.SessionID)

	rec = s.do(t, http.MethodGet, "/api/payment/status/"+checkout.SessionID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	txn := decode[handler.TransactionResponse](t, rec)
	assert.Equal(t, "unpaid", txn.PaymentStatus)
	assert.Equal(t, 10.0, txn.Amount)
	assert.Equal(t, "usd", txn.Currency)

	s.gateway.paymentStatus.Store("paid")
	rec = s.do(t, http.MethodGet, "/api/payment/status/"+checkout.SessionID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode[handler.TransactionResponse](t, rec).PaymentStatus)

	rec = s.do(t, http.MethodGet, "/api/ads/"+ad.AdID, nil, "")
	assert.True(t, decode[handler.AdResponse](t, rec).IsPaid)

	rec = s.do(t, http.MethodGet, "/api/payment/status/"+checkout.SessionID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), s.gateway.getCalls.Load())

	other := s.register(t, "snoop@example.com")
	rec = s.do(t, http.MethodGet, "/api/payment/status/"+checkout.SessionID, nil, other)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transaction not found", decode[apperrors.ErrorResponse](t, rec).Detail)

	// Paid ads may carry more than five images.
	rec = s.do(t, http.MethodPut, "/api/ads/"+ad.AdID, map[string]interface{}{"images": adBody(8)["images"]}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func signedWebhook(payload []byte, secret string) string {
	now := time.Now()
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(webhook.ComputeSignature(now, payload, secret)))
}

func TestPremiumUpgradeByWebhook(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "hook@example.com")
	ad := decode[handler.AdResponse](t, s.do(t, http.MethodPost, "/api/ads", adBody(1), token))
	checkout := decode[handler.CheckoutResponse](t, s.do(t, http.MethodPost, "/api/payment/create-session", map[string]interface{}{
		"ad_id": ad.AdID, "origin_url": "https://shop.example",
	}, token))

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": %q, "object": "checkout.session", "payment_status": "paid", "status": "complete"}}
	}`, checkout.SessionID))

	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	rec := send(signedWebhook(payload, "whsec_wrong"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodGet, "/api/ads/"+ad.AdID, nil, "")
	assert.False(t, decode[handler.AdResponse](t, rec).IsPaid)

	rec = send(signedWebhook(payload, testWebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", decode[handler.WebhookResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/ads/"+ad.AdID, nil, "")
	assert.True(t, decode[handler.AdResponse](t, rec).IsPaid)

	rec = s.do(t, http.MethodGet, "/api/payment/status/"+checkout.SessionID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	txn := decode[handler.TransactionResponse](t, rec)
	assert.Equal(t, "paid", txn.PaymentStatus)
	assert.Equal(t, "complete", txn.Status)
	assert.Zero(t, s.gateway.getCalls.Load())
}

func TestAmbientEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode[[]map[string]interface{}](t, rec)
	require.Len(t, categories, 6)
	assert.Equal(t, "jobs", categories[0]["id"])
	assert.Equal(t, "services", categories[5]["id"])

	rec = s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[apperrors.ErrorResponse](t, rec).Detail)

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `classifieds_http_requests_total{method="GET",route="/api/categories",status="200"} 1`)
}

func TestAuthRateLimit(t *testing.T) {
	gormDB, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	authService := service.NewAuthService(repository.NewUserRepository(gormDB), repository.NewSessionRepository(gormDB),
		auth.NewTokenIssuer("x"), auth.NewSessionCache(nil), fakeIdentity{}, nil)

	e := echo.New()
	Register(e, &config.Config{AuthRateLimit: 1}, logger.Discard(), nil, nil, authService,
		handler.NewAuthHandler(authService, false),
		handler.NewAdHandler(service.NewListingService(repository.NewAdRepository(gormDB), nil, nil)),
		handler.NewPaymentHandler(service.NewPaymentService(repository.NewTransactionRepository(gormDB),
			repository.NewAdRepository(gormDB), newFakeGateway(), nil, nil, logger.Discard())),
	)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
