package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// CreatePayment -> appends a tender to the order. The order stays open.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		PaymentMethodID uint          `json:"payment_method_id" binding:"required"`
		Amount          *money.Amount `json:"amount" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.RecordPayment(c.Request.Context(), companyID, userID, orderID, req.PaymentMethodID, *req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", payment)
}

// GetOrderPayments lists the payments of an order with their sum.
func (pc *PaymentController) GetOrderPayments(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	payments, err := pc.Payments.ListPayments(ctx, companyID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	paid, err := pc.Payments.SumPayments(ctx, companyID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", gin.H{
		"payments": payments,
		"paid":     paid,
	})
}

func (pc *PaymentController) SplitBill(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		NumberOfPeople int `json:"number_of_people" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	split, err := pc.Payments.SplitBill(c.Request.Context(), companyID, orderID, req.NumberOfPeople)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Bill split", split)
}

func (pc *PaymentController) CreatePaymentMethod(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var req struct {
		Name   string `json:"name" binding:"required"`
		IsCash bool   `json:"is_cash"`
	}
	if !bindJSON(c, &req) {
		return
	}
	method, err := pc.Payments.CreatePaymentMethod(c.Request.Context(), companyID, req.Name, req.IsCash)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment method created", method)
}

func (pc *PaymentController) GetPaymentMethods(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	methods, err := pc.Payments.ListPaymentMethods(c.Request.Context(), companyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payment methods", methods)
}
