package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("error", false)
	utils.SetJWTSecret("integration-secret")
	os.Exit(m.Run())
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

// TestEndToEndIntegration walks a dine-in order from seating to a balanced
// drawer while a cashier screen follows the events over the websocket.
func TestEndToEndIntegration(t *testing.T) {
	db, err := database.Open("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	company := models.Company{Name: "Resto Integrasi", IsActive: true}
	require.NoError(t, db.Create(&company).Error)

	hub := kds.NewHub()
	rec := &events.Recorder{}
	dispatcher := events.NewDispatcher(events.Multi{hub, rec}, 64)
	dispatcher.Start()
	defer dispatcher.Stop()

	tables := services.NewTableService(db, dispatcher)
	srv := httptest.NewServer(router.SetupRouter(router.Deps{
		Tables:   tables,
		Orders:   services.NewOrderService(db, tables, dispatcher, money.Zero()),
		Payments: services.NewPaymentService(db, dispatcher),
		Register: services.NewCashRegisterService(db, dispatcher, money.Zero()),
		Hub:      hub,
		Limiter:  middlewares.NewRateLimiter(1000, 1000),
	}))
	defer srv.Close()

	manager, err := utils.GenerateToken(1, company.ID, middlewares.RoleManager, time.Hour)
	require.NoError(t, err)
	cashier, err := utils.GenerateToken(2, company.ID, middlewares.RoleCashier, time.Hour)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + cashier
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// 1. Setup: table, payment method, drawer
	var table models.Table
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/tables", manager, gin.H{"number": "T1", "capacity": 4}, &table))
	var method models.PaymentMethod
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/payment-methods", manager, gin.H{"name": "Cash", "is_cash": true}, &method))
	var session models.CashRegisterSession
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/cash-sessions", cashier, gin.H{"opening_amount": "50.00"}, &session))

	// 2. Seat the guests and take the order
	var order models.Order
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/orders", cashier, gin.H{"type": "dine_in", "table_id": table.ID}, &order))
	base := fmt.Sprintf("/api/orders/%d", order.ID)
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/items", cashier, gin.H{"product_id": 3, "quantity": 2, "unit_price": "18.00"}, nil))
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/items", cashier, gin.H{"product_id": 4, "quantity": 1, "unit_price": "4.50"}, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, base+"/adjustments", cashier, gin.H{"service_charge": "4.05", "discount": "0.55"}, &order))
	assert.Equal(t, "44.00", order.Total.String())

	// 3. Kitchen flow
	for _, next := range []string{"sent_to_kitchen", "preparing", "ready"} {
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, base+"/status", cashier, gin.H{"status": next}, nil))
	}

	// 4. Pay and close
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/payments", cashier, gin.H{"payment_method_id": method.ID, "amount": "44.00"}, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, base+"/status", cashier, gin.H{"status": "closed"}, &order))
	assert.Equal(t, models.OrderClosed, order.Status)
	assert.Nil(t, order.Shortfall)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, fmt.Sprintf("/api/tables/%d", table.ID), cashier, nil, &table))
	assert.Equal(t, models.TableAvailable, table.Status)

	// 5. Count the drawer
	var closed struct {
		Session models.CashRegisterSession `json:"session"`
		Summary services.Summary           `json:"summary"`
	}
	closePath := fmt.Sprintf("/api/cash-sessions/%d/close", session.ID)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, closePath, cashier, gin.H{"closing_amount": "94.00"}, &closed))
	assert.Equal(t, services.ClassBalanced, closed.Session.Classification)
	assert.Equal(t, "94.00", closed.Summary.ExpectedAmount.String())
	require.Len(t, closed.Summary.ByMethod, 1)
	assert.Equal(t, "44.00", closed.Summary.ByMethod[0].Total.String())

	// 6. The cashier screen got the events, the new table first
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg kds.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.TableStatusChanged, msg.Event)

	require.Eventually(t, func() bool {
		names := rec.Names()
		return len(names) > 0 && names[len(names)-1] == events.CashSessionClosed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.Names(), events.OrderCreated)
	assert.Zero(t, dispatcher.Dropped())
}

func TestRuntimeMetrics(t *testing.T) {
	dispatcher := events.NewDispatcher(&events.Recorder{}, 1)
	for i := 0; i < 3; i++ {
		dispatcher.Emit(events.New(events.OrderCreated, 1, uint(i), nil))
	}
	require.Equal(t, int64(2), dispatcher.Dropped())

	collectors := runtimeMetrics(dispatcher, kds.NewHub())
	require.Len(t, collectors, 2)
	expected := `
# HELP pos_events_dropped_total Events dropped because the dispatch queue was full.
# TYPE pos_events_dropped_total counter
pos_events_dropped_total 2
`
	assert.NoError(t, testutil.CollectAndCompare(collectors[0], strings.NewReader(expected)))
	assert.Equal(t, float64(0), testutil.ToFloat64(collectors[1]))
}
