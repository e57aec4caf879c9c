package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("controllers-test-secret")
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	engine  *gin.Engine
	rec     *events.Recorder
	company uint
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	rec := &events.Recorder{}
	tables := services.NewTableService(db, rec)
	engine := router.SetupRouter(router.Deps{
		Tables:   tables,
		Orders:   services.NewOrderService(db, tables, rec, money.Zero()),
		Payments: services.NewPaymentService(db, rec),
		Register: services.NewCashRegisterService(db, rec, money.MustParse("5.00")),
		Hub:      kds.NewHub(),
	})

	company := models.Company{Name: "Kedai Dua", IsActive: true}
	require.NoError(t, db.Create(&company).Error)
	return &testServer{t: t, db: db, engine: engine, rec: rec, company: company.ID}
}

func (s *testServer) token(userID uint, role string) string {
	s.t.Helper()
	return s.tokenFor(userID, s.company, role)
}

func (s *testServer) tokenFor(userID, companyID uint, role string) string {
	s.t.Helper()
	tok, err := utils.GenerateToken(userID, companyID, role, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) (int, response) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp response
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode(t *testing.T, resp response, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(http.MethodGet, "/api/tables", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Status)

	code, _ = s.do(http.MethodGet, "/api/tables", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTableEndpoints(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(1, "manager")
	waiter := s.token(2, "waiter")

	code, resp := s.do(http.MethodPost, "/api/tables", waiter, gin.H{"number": "A1", "capacity": 4})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPost, "/api/tables", manager, gin.H{"number": "A1", "capacity": 4})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var table models.Table
	decode(t, resp, &table)
	assert.Equal(t, models.TableAvailable, table.Status)

	code, resp = s.do(http.MethodPost, "/api/tables", manager, gin.H{"number": "A1", "capacity": 2})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Code)

	code, resp = s.do(http.MethodGet, "/api/tables", waiter, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "List of tables", resp.Message)
	var tables []models.Table
	decode(t, resp, &tables)
	assert.Len(t, tables, 1)

	path := fmt.Sprintf("/api/tables/%d", table.ID)
	code, resp = s.do(http.MethodPost, path+"/reserve", waiter, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp, &table)
	assert.Equal(t, models.TableReserved, table.Status)

	code, resp = s.do(http.MethodPost, path+"/reserve", waiter, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, path+"/cancel-reservation", waiter, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodDelete, path, manager, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, path, waiter, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	waiter := s.token(2, "waiter")

	code, _ := s.do(http.MethodGet, "/api/orders/abc", waiter, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(http.MethodPost, "/api/orders", waiter, gin.H{"type": "delivery"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodPost, "/api/orders", waiter, gin.H{"type": "takeout"})
	require.Equal(t, http.StatusCreated, code)
	var order models.Order
	decode(t, resp, &order)

	items := fmt.Sprintf("/api/orders/%d/items", order.ID)
	code, resp = s.do(http.MethodPost, items, waiter, gin.H{"product_id": 1, "quantity": 0, "unit_price": "5.00"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodPost, items, waiter, gin.H{"product_id": 1, "quantity": 1, "unit_price": "-5.00"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodPost, items, waiter, gin.H{"product_id": 5, "quantity": 3})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodPost, items, waiter, gin.H{"product_id": 5, "quantity": 1, "unit_price": "1e12"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodPatch, fmt.Sprintf("/api/orders/%d/adjustments", order.ID), waiter, gin.H{"discount": "1.00"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), waiter, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp, &order)
	assert.Empty(t, order.Items)

	code, resp = s.do(http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", order.ID), waiter, gin.H{"status": "closed"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", resp.Code)

	code, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/orders/%d/items/99", order.ID), waiter, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOrdersAreTenantScoped(t *testing.T) {
	s := newTestServer(t)
	other := models.Company{Name: "Kedai Tiga", IsActive: true}
	require.NoError(t, s.db.Create(&other).Error)

	code, resp := s.do(http.MethodPost, "/api/orders", s.token(2, "waiter"), gin.H{"type": "takeout"})
	require.Equal(t, http.StatusCreated, code)
	var order models.Order
	decode(t, resp, &order)

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), s.tokenFor(2, other.ID, "waiter"), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Code)
}

func TestDineInCloseWithShortfall(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(1, "manager")
	cashier := s.token(3, "cashier")

	code, resp := s.do(http.MethodPost, "/api/tables", manager, gin.H{"number": "B2", "capacity": 2})
	require.Equal(t, http.StatusCreated, code)
	var table models.Table
	decode(t, resp, &table)

	code, resp = s.do(http.MethodPost, "/api/payment-methods", manager, gin.H{"name": "Cash", "is_cash": true})
	require.Equal(t, http.StatusCreated, code)
	var method models.PaymentMethod
	decode(t, resp, &method)

	code, resp = s.do(http.MethodPost, "/api/orders", cashier, gin.H{"type": "dine_in", "table_id": table.ID})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var order models.Order
	decode(t, resp, &order)
	base := fmt.Sprintf("/api/orders/%d", order.ID)

	code, resp = s.do(http.MethodPost, base+"/items", cashier, gin.H{"product_id": 9, "quantity": 2, "unit_price": "12.50"})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(http.MethodGet, base+"/totals", cashier, nil)
	require.Equal(t, http.StatusOK, code)
	var totals services.Totals
	decode(t, resp, &totals)
	assert.Equal(t, "25.00", totals.Total.String())
	assert.False(t, totals.Drift)

	for _, next := range []string{"sent_to_kitchen", "preparing", "ready"} {
		code, resp = s.do(http.MethodPatch, base+"/status", cashier, gin.H{"status": next})
		require.Equal(t, http.StatusOK, code, resp.Message)
	}

	code, resp = s.do(http.MethodPost, base+"/payments", cashier, gin.H{"payment_method_id": method.ID, "amount": "10.00"})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(http.MethodPatch, base+"/status", cashier, gin.H{"status": "closed"})
	require.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "payment_shortfall", resp.Code)
	var details struct {
		OrderID uint   `json:"order_id"`
		Due     string `json:"due"`
		Paid    string `json:"paid"`
	}
	decode(t, resp, &details)
	assert.Equal(t, order.ID, details.OrderID)
	assert.Equal(t, "25.00", details.Due)
	assert.Equal(t, "10.00", details.Paid)

	code, resp = s.do(http.MethodPatch, base+"/status", cashier, gin.H{"status": "closed", "accept_shortfall": true})
	require.Equal(t, http.StatusOK, code, resp.Message)
	decode(t, resp, &order)
	assert.Equal(t, models.OrderClosed, order.Status)
	require.NotNil(t, order.Shortfall)
	assert.Equal(t, "15.00", order.Shortfall.String())

	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/tables/%d", table.ID), cashier, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp, &table)
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Nil(t, table.CurrentOrderID)

	code, resp = s.do(http.MethodGet, base+"/payments", cashier, nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Payments []models.Payment `json:"payments"`
		Paid     string           `json:"paid"`
	}
	decode(t, resp, &listed)
	assert.Len(t, listed.Payments, 1)
	assert.Equal(t, "10.00", listed.Paid)

	assert.Contains(t, s.rec.Names(), events.OrderStatusChanged)
	assert.Contains(t, s.rec.Names(), events.PaymentRecorded)
}

func TestItemUpdateAndSplit(t *testing.T) {
	s := newTestServer(t)
	waiter := s.token(2, "waiter")

	code, resp := s.do(http.MethodPost, "/api/orders", waiter, gin.H{"type": "takeout"})
	require.Equal(t, http.StatusCreated, code)
	var order models.Order
	decode(t, resp, &order)
	base := fmt.Sprintf("/api/orders/%d", order.ID)

	code, resp = s.do(http.MethodPost, base+"/items", waiter, gin.H{"product_id": 1, "quantity": 1, "unit_price": "10.00"})
	require.Equal(t, http.StatusCreated, code)
	var item models.OrderItem
	decode(t, resp, &item)

	code, resp = s.do(http.MethodPatch, fmt.Sprintf("%s/items/%d", base, item.ID), waiter, gin.H{"quantity": 2, "status": "preparing"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	decode(t, resp, &item)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, models.ItemPreparing, item.Status)

	code, resp = s.do(http.MethodPatch, fmt.Sprintf("%s/items/%d", base, item.ID), waiter, gin.H{"quantity": 5, "status": "pending"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", resp.Code)

	code, resp = s.do(http.MethodGet, base, waiter, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp, &order)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "20.00", order.Total.String())

	code, resp = s.do(http.MethodPost, base+"/split", waiter, gin.H{"number_of_people": 3})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var split models.BillSplit
	decode(t, resp, &split)
	assert.Equal(t, "20.00", split.Total.String())
	assert.Equal(t, "6.67", split.AmountPerPerson.String())

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("%s/items/%d", base, item.ID), waiter, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, base, waiter, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp, &order)
	assert.True(t, order.Total.IsZero())
}

func TestCashSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(1, "manager")
	cashier := s.token(3, "cashier")

	code, _ := s.do(http.MethodPost, "/api/cash-sessions", s.token(2, "waiter"), gin.H{"opening_amount": "100.00"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := s.do(http.MethodPost, "/api/cash-sessions", cashier, gin.H{"opening_amount": "100.00"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var session models.CashRegisterSession
	decode(t, resp, &session)

	code, resp = s.do(http.MethodPost, "/api/cash-sessions", cashier, gin.H{"opening_amount": "50.00"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Code)

	code, resp = s.do(http.MethodGet, "/api/cash-sessions/current", cashier, nil)
	require.Equal(t, http.StatusOK, code)
	var current models.CashRegisterSession
	decode(t, resp, &current)
	assert.Equal(t, session.ID, current.ID)

	code, resp = s.do(http.MethodPost, "/api/payment-methods", manager, gin.H{"name": "Cash", "is_cash": true})
	require.Equal(t, http.StatusCreated, code)
	var method models.PaymentMethod
	decode(t, resp, &method)

	code, resp = s.do(http.MethodPost, "/api/orders", cashier, gin.H{"type": "takeout"})
	require.Equal(t, http.StatusCreated, code)
	var order models.Order
	decode(t, resp, &order)
	base := fmt.Sprintf("/api/orders/%d", order.ID)
	code, _ = s.do(http.MethodPost, base+"/items", cashier, gin.H{"product_id": 1, "quantity": 1, "unit_price": "40.00"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, base+"/payments", cashier, gin.H{"payment_method_id": method.ID, "amount": "40.00"})
	require.Equal(t, http.StatusCreated, code)
	for _, next := range []string{"sent_to_kitchen", "preparing", "ready", "closed"} {
		code, resp = s.do(http.MethodPatch, base+"/status", cashier, gin.H{"status": next})
		require.Equal(t, http.StatusOK, code, resp.Message)
	}

	sessionPath := fmt.Sprintf("/api/cash-sessions/%d", session.ID)
	code, resp = s.do(http.MethodPost, sessionPath+"/movements", cashier, gin.H{"type": "withdrawal", "amount": "15.00", "reason": "supplier"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	code, resp = s.do(http.MethodPost, sessionPath+"/movements", cashier, gin.H{"type": "refund", "amount": "1.00"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, sessionPath+"/movements", cashier, nil)
	require.Equal(t, http.StatusOK, code)
	var movements []models.CashMovement
	decode(t, resp, &movements)
	assert.Len(t, movements, 1)

	code, resp = s.do(http.MethodGet, sessionPath+"/summary", cashier, nil)
	require.Equal(t, http.StatusOK, code)
	var summary services.Summary
	decode(t, resp, &summary)
	assert.Equal(t, "40.00", summary.TotalSales.String())
	assert.Equal(t, "125.00", summary.ExpectedAmount.String())

	code, resp = s.do(http.MethodPost, sessionPath+"/close", cashier, gin.H{"closing_amount": "124.00"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var closed struct {
		Session models.CashRegisterSession `json:"session"`
		Summary services.Summary           `json:"summary"`
	}
	decode(t, resp, &closed)
	assert.Equal(t, models.SessionClosed, closed.Session.Status)
	assert.Equal(t, services.ClassShort, closed.Session.Classification)
	require.NotNil(t, closed.Session.Difference)
	assert.Equal(t, "-1.00", closed.Session.Difference.String())

	code, resp = s.do(http.MethodPost, sessionPath+"/close", cashier, gin.H{"closing_amount": "124.00"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_state", resp.Code)

	code, _ = s.do(http.MethodGet, "/api/cash-sessions/current", cashier, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCloseSessionNeedsSupervisorPIN(t *testing.T) {
	s := newTestServer(t)
	hash, err := services.HashPIN("2468")
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&models.Company{}).Where("id = ?", s.company).
		Update("supervisor_pin_hash", hash).Error)
	cashier := s.token(3, "cashier")

	code, resp := s.do(http.MethodPost, "/api/cash-sessions", cashier, gin.H{"opening_amount": "100.00"})
	require.Equal(t, http.StatusCreated, code)
	var session models.CashRegisterSession
	decode(t, resp, &session)
	closePath := fmt.Sprintf("/api/cash-sessions/%d/close", session.ID)

	code, resp = s.do(http.MethodPost, closePath, cashier, gin.H{"supervisor_pin": "2468"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", resp.Code)

	code, resp = s.do(http.MethodPost, closePath, cashier, gin.H{"closing_amount": "80.00"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "override_required", resp.Code)

	code, resp = s.do(http.MethodPost, closePath, cashier, gin.H{"closing_amount": "80.00", "supervisor_pin": "2468"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var closed struct {
		Session models.CashRegisterSession `json:"session"`
	}
	decode(t, resp, &closed)
	require.NotNil(t, closed.Session.OverrideBy)
	assert.Equal(t, uint(3), *closed.Session.OverrideBy)
}
