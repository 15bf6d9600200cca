package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	internalchat "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/realtime"
	pkgAuth "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/auth"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubRedisStore struct {
	stubPinger
}

func (stubRedisStore) Get(context.Context, string) (string, error) { return "", nil }

func (stubRedisStore) Set(context.Context, string, any, time.Duration) error { return nil }

func (stubRedisStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return true, nil
}

func (stubRedisStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (stubRedisStore) Del(context.Context, ...string) error { return nil }

func (stubRedisStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	return true, limit - 1, nil
}

type stubChatService struct {
	internalchat.Service
}

func (stubChatService) GetUnreadTotal(ctx context.Context, userID uuid.UUID, role enums.SenderType) (int64, error) {
	return 2, nil
}

type stubOrdersService struct {
	orders.Service
}

func (stubOrdersService) ListOrders(ctx context.Context, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Items: []orders.OrderDTO{}, Pagination: pagination.NewPageInfo(filters.Params, 0)}, nil
}

func (stubOrdersService) ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

type stubGateway struct{}

func (stubGateway) Serve(w http.ResponseWriter, r *http.Request, identity realtime.Identity) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (stubGateway) PublishMessage(*internalchat.SendResult) {}

func (stubGateway) PublishRead(*internalchat.MarkReadResult, enums.SenderType) {}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
			RequireSession:    true,
		},
		RateLimit: config.RateLimitConfig{
			ChatMessageWindow: time.Minute,
			ChatMessageLimit:  10,
			OrderCreateWindow: time.Minute,
			OrderCreateLimit:  10,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubRedisStore{},
		stubSessionChecker{},
		prometheus.NewRegistry(),
		stubChatService{},
		stubOrdersService{},
		stubGateway{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.Issue(cfg.JWT, time.Now(), pkgAuth.Principal{UserID: uuid.New(), Role: role, AccessID: uuid.NewString()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/orders/my-orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCustomerOrdersSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/my-orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminOrdersRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor))
	if resp := serve(router, nonAdmin); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	if resp := serve(router, admin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestChatRoutesExcludeAdmins(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/chat/unread", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	if resp := serve(router, admin); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin got %d", resp.Code)
	}

	vendor := httptest.NewRequest(http.MethodGet, "/api/v1/chat/unread", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor))
	if resp := serve(router, vendor); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor got %d", resp.Code)
	}
}

func TestOnlyCustomersStartConversations(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"vendorId":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/conversations", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor))
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

func TestCreateOrderRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestCancelOrderRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestWebsocketAcceptsQueryToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+buildToken(t, cfg, enums.ActorRoleCustomer), nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if resp := serve(router, req); resp.Code != http.StatusNoContent {
		t.Fatalf("expected gateway to take the connection, got %d", resp.Code)
	}
}
