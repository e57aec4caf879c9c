package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// GetAllOrders -> orders of the company, optionally ?status=
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orders, err := oc.Orders.ListOrders(c.Request.Context(), companyID, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), companyID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	var req struct {
		Type     models.OrderType  `json:"type" binding:"required"`
		TableID  *uint             `json:"table_id"`
		Customer services.Customer `json:"customer"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.CreateOrder(c.Request.Context(), companyID, userID, services.NewOrder{
		Type:     req.Type,
		TableID:  req.TableID,
		Customer: req.Customer,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) AddItem(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		ProductID        uint          `json:"product_id" binding:"required"`
		Quantity         int           `json:"quantity" binding:"required"`
		UnitPrice        *money.Amount `json:"unit_price" binding:"required"`
		Notes            string        `json:"notes"`
		ProductionSector string        `json:"production_sector"`
	}
	if !bindJSON(c, &req) {
		return
	}
	item, err := oc.Orders.AddItem(c.Request.Context(), companyID, orderID, services.NewItem{
		ProductID:        req.ProductID,
		Quantity:         req.Quantity,
		UnitPrice:        *req.UnitPrice,
		Notes:            req.Notes,
		ProductionSector: req.ProductionSector,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item added", item)
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	if err := oc.Orders.RemoveItem(c.Request.Context(), companyID, orderID, itemID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", gin.H{"id": itemID})
}

// UpdateItem changes the quantity and/or the kitchen status of a line.
func (oc *OrderController) UpdateItem(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req struct {
		Quantity *int              `json:"quantity"`
		Status   models.ItemStatus `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	item, err := oc.Orders.UpdateItem(c.Request.Context(), companyID, orderID, itemID, services.ItemUpdate{
		Quantity: req.Quantity,
		Status:   req.Status,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", item)
}

func (oc *OrderController) ApplyAdjustments(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		ServiceCharge *money.Amount `json:"service_charge" binding:"required"`
		Discount      *money.Amount `json:"discount" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.ApplyAdjustments(c.Request.Context(), companyID, orderID, *req.ServiceCharge, *req.Discount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order adjusted", order)
}

// UpdateOrderStatus -> moves the order; closing an underpaid order needs
// "accept_shortfall": true.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Status          models.OrderStatus `json:"status" binding:"required"`
		AcceptShortfall bool               `json:"accept_shortfall"`
	}
	if !bindJSON(c, &req) {
		return
	}
	var opts []services.TransitionOption
	if req.AcceptShortfall {
		opts = append(opts, services.AcceptShortfall())
	}
	order, err := oc.Orders.TransitionStatus(c.Request.Context(), companyID, userID, orderID, req.Status, opts...)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) GetTotals(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	totals, err := oc.Orders.GetTotals(c.Request.Context(), companyID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order totals", totals)
}
