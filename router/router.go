package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Tables   *services.TableService
	Orders   *services.OrderService
	Payments *services.PaymentService
	Register *services.CashRegisterService
	Hub      *kds.Hub
	Limiter  *middlewares.RateLimiter

	CORSOrigin string
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.Metrics())

	tableCtrl := controllers.NewTableController(d.Tables)
	orderCtrl := controllers.NewOrderController(d.Orders)
	paymentCtrl := controllers.NewPaymentController(d.Payments)
	registerCtrl := controllers.NewCashRegisterController(d.Register)
	kdsCtrl := controllers.NewKDSController(d.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	if d.Limiter != nil {
		api.Use(d.Limiter.RateLimit())
	}

	// TABLES
	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/:table_id", tableCtrl.GetTableByID)
	api.POST("/tables/:table_id/reserve", tableCtrl.ReserveTable)
	api.POST("/tables/:table_id/cancel-reservation", tableCtrl.CancelReservation)
	tableAdmin := api.Group("/tables")
	tableAdmin.Use(middlewares.RequireRole(middlewares.RoleManager))
	{
		tableAdmin.POST("", tableCtrl.CreateTable)
		tableAdmin.DELETE("/:table_id", tableCtrl.DeleteTable)
	}

	// ORDERS
	api.GET("/orders", orderCtrl.GetAllOrders)
	api.POST("/orders", orderCtrl.CreateOrder)
	api.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	api.GET("/orders/:order_id/totals", orderCtrl.GetTotals)
	api.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	api.PATCH("/orders/:order_id/adjustments", middlewares.RequireRole(middlewares.RoleManager, middlewares.RoleCashier), orderCtrl.ApplyAdjustments)

	// ORDER ITEMS
	api.POST("/orders/:order_id/items", orderCtrl.AddItem)
	api.PATCH("/orders/:order_id/items/:item_id", orderCtrl.UpdateItem)
	api.DELETE("/orders/:order_id/items/:item_id", orderCtrl.RemoveItem)

	// PAYMENTS
	api.GET("/orders/:order_id/payments", paymentCtrl.GetOrderPayments)
	api.POST("/orders/:order_id/payments", middlewares.RequireRole(middlewares.RoleManager, middlewares.RoleCashier), paymentCtrl.CreatePayment)
	api.POST("/orders/:order_id/split", paymentCtrl.SplitBill)
	api.GET("/payment-methods", paymentCtrl.GetPaymentMethods)
	api.POST("/payment-methods", middlewares.RequireRole(middlewares.RoleManager), paymentCtrl.CreatePaymentMethod)

	// CASH REGISTER
	register := api.Group("/cash-sessions")
	register.Use(middlewares.RequireRole(middlewares.RoleManager, middlewares.RoleCashier))
	{
		register.POST("", registerCtrl.OpenSession)
		register.GET("/current", registerCtrl.GetCurrentSession)
		register.GET("/:session_id", registerCtrl.GetSession)
		register.GET("/:session_id/summary", registerCtrl.GetSummary)
		register.GET("/:session_id/movements", registerCtrl.GetMovements)
		register.POST("/:session_id/movements", registerCtrl.CreateMovement)
		register.POST("/:session_id/close", registerCtrl.CloseSession)
	}

	// WebSocket endpoint dengan middleware khusus
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/events", kdsCtrl.KDSHandler)
	}

	return r
}
