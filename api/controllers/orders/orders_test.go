package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/middleware"
	internalorders "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

type stubOrderService struct {
	createFn       func(ctx context.Context, userID uuid.UUID, input internalorders.CreateOrderInput) (*internalorders.OrderDTO, error)
	getFn          func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.OrderDTO, error)
	getByNumberFn  func(ctx context.Context, number string, actor internalorders.Actor) (*internalorders.OrderDTO, error)
	listFn         func(ctx context.Context, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	listUserFn     func(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]internalorders.OrderDTO, error)
	recentFn       func(ctx context.Context, limit int) ([]internalorders.OrderDTO, error)
	updateStatusFn func(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error)
	cancelFn       func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error)
	paymentFn      func(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor internalorders.Actor) (*internalorders.OrderDTO, error)
	financialsFn   func(ctx context.Context, input internalorders.FinancialsInput) (*internalorders.OrderDTO, error)
	statsFn        func(ctx context.Context, filters internalorders.StatsFilters) (*internalorders.OrderStats, error)
	userStatsFn    func(ctx context.Context, userID uuid.UUID) (*internalorders.UserOrderStats, error)
	deleteFn       func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (bool, error)
}

func (s stubOrderService) CreateOrder(ctx context.Context, userID uuid.UUID, input internalorders.CreateOrderInput) (*internalorders.OrderDTO, error) {
	return s.createFn(ctx, userID, input)
}

func (s stubOrderService) GetOrder(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.OrderDTO, error) {
	return s.getFn(ctx, orderID, actor)
}

func (s stubOrderService) GetOrderByNumber(ctx context.Context, number string, actor internalorders.Actor) (*internalorders.OrderDTO, error) {
	return s.getByNumberFn(ctx, number, actor)
}

func (s stubOrderService) ListOrders(ctx context.Context, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	return s.listFn(ctx, filters)
}

func (s stubOrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]internalorders.OrderDTO, error) {
	return s.listUserFn(ctx, userID, status)
}

func (s stubOrderService) RecentOrders(ctx context.Context, limit int) ([]internalorders.OrderDTO, error) {
	return s.recentFn(ctx, limit)
}

func (s stubOrderService) UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	return s.updateStatusFn(ctx, input)
}

func (s stubOrderService) CancelOrder(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error) {
	return s.cancelFn(ctx, input)
}

func (s stubOrderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor internalorders.Actor) (*internalorders.OrderDTO, error) {
	return s.paymentFn(ctx, orderID, status, actor)
}

func (s stubOrderService) UpdateFinancials(ctx context.Context, input internalorders.FinancialsInput) (*internalorders.OrderDTO, error) {
	return s.financialsFn(ctx, input)
}

func (s stubOrderService) GetOrderStats(ctx context.Context, filters internalorders.StatsFilters) (*internalorders.OrderStats, error) {
	return s.statsFn(ctx, filters)
}

func (s stubOrderService) GetUserOrderStats(ctx context.Context, userID uuid.UUID) (*internalorders.UserOrderStats, error) {
	return s.userStatsFn(ctx, userID)
}

func (s stubOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (bool, error) {
	return s.deleteFn(ctx, orderID, actor)
}

func authed(req *http.Request, userID uuid.UUID, role enums.ActorRole) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID, Role: role}))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		rc = chi.NewRouteContext()
	}
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

const createBody = `{
	"shippingAddress": {"fullName":"Ada Lovelace","mobileNumber":"+8801712345678","country":"BD","addressSpecific":"12 Road","city":"Dhaka","state":"Dhaka","zipCode":"1207"},
	"products": [{"productId":"7d4bd0ab-8f4c-4d54-9a1d-5c0f5e1f2a10","quantity":2,"price":"10.00"},{"productId":"0c5b6a1e-53a0-4bb8-8c1e-8c8f1f0e9b77","quantity":1,"price":5}],
	"shippingFee": 3,
	"tax": "2",
	"estimatedDeliveryDate": "2026-03-08T00:00:00Z"
}`

func TestCreateMapsBodyAndReturns201(t *testing.T) {
	userID := uuid.New()
	svc := stubOrderService{
		createFn: func(ctx context.Context, got uuid.UUID, input internalorders.CreateOrderInput) (*internalorders.OrderDTO, error) {
			if got != userID {
				t.Fatalf("expected caller id %s got %s", userID, got)
			}
			if len(input.Products) != 2 || input.Products[0].Quantity != 2 || !input.Products[1].Price.Equal(decimal.NewFromInt(5)) {
				t.Fatalf("unexpected lines %+v", input.Products)
			}
			if !input.ShippingFee.Equal(decimal.NewFromInt(3)) || !input.Tax.Equal(decimal.NewFromInt(2)) {
				t.Fatalf("unexpected fees %s %s", input.ShippingFee, input.Tax)
			}
			if input.ShippingAddress.City != "Dhaka" {
				t.Fatalf("unexpected address %+v", input.ShippingAddress)
			}
			return &internalorders.OrderDTO{ID: uuid.New(), OrderNumber: "ORD-ABC-XYZ", Status: enums.OrderStatusPlaced}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody)), userID, enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var env struct {
		Success bool                    `json:"success"`
		Message string                  `json:"message"`
		Data    internalorders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Message != "Order created successfully" || env.Data.OrderNumber != "ORD-ABC-XYZ" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	body := strings.Replace(createBody, "+8801712345678", "call me maybe", 1)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	Create(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createBody))
	resp := httptest.NewRecorder()
	Create(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMyOrdersAcceptsStatusLabel(t *testing.T) {
	userID := uuid.New()
	svc := stubOrderService{
		listUserFn: func(ctx context.Context, got uuid.UUID, status *enums.OrderStatus) ([]internalorders.OrderDTO, error) {
			if status == nil || *status != enums.OrderStatusOutForDelivery {
				t.Fatalf("expected out_for_delivery filter got %v", status)
			}
			return []internalorders.OrderDTO{{UserID: got}}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/my-orders?status=Out%20for%20Delivery", nil), userID, enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	MyOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMyOrdersRejectsUnknownStatus(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/my-orders?status=shipped", nil), uuid.New(), enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	MyOrders(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTrackPassesNumberAndActor(t *testing.T) {
	userID := uuid.New()
	svc := stubOrderService{
		getByNumberFn: func(ctx context.Context, number string, actor internalorders.Actor) (*internalorders.OrderDTO, error) {
			if number != "ord-abc-xyz" || actor.UserID != userID {
				t.Fatalf("unexpected lookup %s %+v", number, actor)
			}
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), userID, enums.ActorRoleCustomer)
	req = withURLParam(req, "orderNumber", "ord-abc-xyz")
	resp := httptest.NewRecorder()
	Track(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCancelWithoutBodyUsesNilReason(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrderService{
		cancelFn: func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error) {
			if input.OrderID != orderID || input.Reason != nil {
				t.Fatalf("unexpected cancel input %+v", input)
			}
			return &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatusCancelled}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodPut, "/", nil), uuid.New(), enums.ActorRoleCustomer)
	req = withURLParam(req, "id", orderID.String())
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCancelMapsStateConflict(t *testing.T) {
	svc := stubOrderService{
		cancelFn: func(ctx context.Context, input internalorders.CancelInput) (*internalorders.OrderDTO, error) {
			if input.Reason == nil || *input.Reason != "changed my mind" {
				t.Fatalf("unexpected reason %v", input.Reason)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel a delivered order")
		},
	}

	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":"changed my mind"}`)), uuid.New(), enums.ActorRoleCustomer)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Message != "cannot cancel a delivered order" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestDetailRejectsBadID(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), enums.ActorRoleCustomer)
	req = withURLParam(req, "id", "nope")
	resp := httptest.NewRecorder()
	Detail(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminListParsesFilters(t *testing.T) {
	userID := uuid.New()
	svc := stubOrderService{
		listFn: func(ctx context.Context, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			if filters.UserID == nil || *filters.UserID != userID {
				t.Fatalf("unexpected user filter %v", filters.UserID)
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusDelivered {
				t.Fatalf("unexpected status filter %v", filters.Status)
			}
			if filters.PaymentStatus == nil || *filters.PaymentStatus != enums.PaymentStatusCompleted {
				t.Fatalf("unexpected payment filter %v", filters.PaymentStatus)
			}
			if filters.Params.Page != 2 || filters.Params.Limit != 5 {
				t.Fatalf("unexpected params %+v", filters.Params)
			}
			if filters.EndDate == nil || filters.EndDate.Hour() != 23 {
				t.Fatalf("expected inclusive end date got %v", filters.EndDate)
			}
			return &internalorders.OrderList{
				Items:      []internalorders.OrderDTO{{ID: uuid.New()}},
				Pagination: pagination.NewPageInfo(filters.Params, 6),
			}, nil
		},
	}

	url := "/api/v1/admin/orders?userId=" + userID.String() + "&status=delivered&paymentStatus=completed&page=2&limit=5&startDate=2026-03-01&endDate=2026-03-31"
	req := authed(httptest.NewRequest(http.MethodGet, url, nil), uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var env struct {
		Data       []internalorders.OrderDTO `json:"data"`
		Pagination pagination.PageInfo       `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected page %+v", env)
	}
}

func TestAdminStatsPassesWindow(t *testing.T) {
	svc := stubOrderService{
		statsFn: func(ctx context.Context, filters internalorders.StatsFilters) (*internalorders.OrderStats, error) {
			want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			if filters.StartDate == nil || !filters.StartDate.Equal(want) {
				t.Fatalf("unexpected start %v", filters.StartDate)
			}
			if filters.EndDate != nil {
				t.Fatalf("expected open end")
			}
			return &internalorders.OrderStats{TotalOrders: 3}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/?startDate=2026-03-01", nil), uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	AdminStats(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminUpdateStatusRejectsUnknownStatus(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"shipped"}`)), uuid.New(), enums.ActorRoleAdmin)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdateStatus(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminUpdateStatusForwardsTransition(t *testing.T) {
	adminID := uuid.New()
	svc := stubOrderService{
		updateStatusFn: func(ctx context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
			if input.Status != enums.OrderStatusPreparingForShipment {
				t.Fatalf("unexpected status %s", input.Status)
			}
			if input.TrackingNumber == nil || *input.TrackingNumber != "TRK1" {
				t.Fatalf("unexpected tracking %v", input.TrackingNumber)
			}
			if input.Actor.UserID != adminID || input.Actor.Role != enums.ActorRoleAdmin {
				t.Fatalf("unexpected actor %+v", input.Actor)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot transition from Delivered to Preparing for Shipment")
		},
	}

	body := `{"status":"Preparing for Shipment","trackingNumber":"TRK1"}`
	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)), adminID, enums.ActorRoleAdmin)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminUpdatePaymentStatus(t *testing.T) {
	svc := stubOrderService{
		paymentFn: func(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor internalorders.Actor) (*internalorders.OrderDTO, error) {
			if status != enums.PaymentStatusRefunded {
				t.Fatalf("unexpected status %s", status)
			}
			return &internalorders.OrderDTO{ID: orderID, PaymentStatus: status}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"paymentStatus":"refunded"}`)), uuid.New(), enums.ActorRoleAdmin)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdatePaymentStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminUpdateFinancialsKeepsOmittedFieldsNil(t *testing.T) {
	svc := stubOrderService{
		financialsFn: func(ctx context.Context, input internalorders.FinancialsInput) (*internalorders.OrderDTO, error) {
			if input.ShippingFee == nil || !input.ShippingFee.Equal(decimal.RequireFromString("4.50")) {
				t.Fatalf("unexpected fee %v", input.ShippingFee)
			}
			if input.Tax != nil {
				t.Fatalf("omitted tax must stay nil")
			}
			return &internalorders.OrderDTO{ID: input.OrderID}, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"shippingFee":"4.50","discount":1}`)), uuid.New(), enums.ActorRoleAdmin)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdateFinancials(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminDeleteMissingOrder(t *testing.T) {
	svc := stubOrderService{
		deleteFn: func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (bool, error) {
			return false, nil
		},
	}

	req := authed(httptest.NewRequest(http.MethodDelete, "/", nil), uuid.New(), enums.ActorRoleAdmin)
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminDelete(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestAdminRecentBoundsLimit(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	AdminRecent(stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
