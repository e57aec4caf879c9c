package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CashRegisterController struct {
	Register *services.CashRegisterService
}

func NewCashRegisterController(register *services.CashRegisterService) *CashRegisterController {
	return &CashRegisterController{Register: register}
}

func (rc *CashRegisterController) OpenSession(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	var req struct {
		OpeningAmount *money.Amount `json:"opening_amount" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := rc.Register.OpenSession(c.Request.Context(), companyID, userID, *req.OpeningAmount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cash session opened", session)
}

// GetCurrentSession -> the caller's open session, 404 when there is none
func (rc *CashRegisterController) GetCurrentSession(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	session, err := rc.Register.GetOpenSession(c.Request.Context(), companyID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current cash session", session)
}

func (rc *CashRegisterController) GetSession(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	session, err := rc.Register.GetSession(c.Request.Context(), companyID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash session", session)
}

func (rc *CashRegisterController) CreateMovement(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Type   models.MovementType `json:"type" binding:"required"`
		Amount *money.Amount       `json:"amount" binding:"required"`
		Reason string              `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	movement, err := rc.Register.RecordMovement(c.Request.Context(), companyID, userID, sessionID, req.Type, *req.Amount, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cash movement recorded", movement)
}

func (rc *CashRegisterController) GetMovements(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	movements, err := rc.Register.ListMovements(c.Request.Context(), companyID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of cash movements", movements)
}

func (rc *CashRegisterController) GetSummary(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	summary, err := rc.Register.GetSummary(c.Request.Context(), companyID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash session summary", summary)
}

// CloseSession counts the drawer. A large shortage needs "supervisor_pin"
// when the company has one configured.
func (rc *CashRegisterController) CloseSession(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		ClosingAmount *money.Amount `json:"closing_amount" binding:"required"`
		SupervisorPIN string        `json:"supervisor_pin"`
		Notes         string        `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, summary, err := rc.Register.CloseSession(c.Request.Context(), companyID, userID, sessionID, services.CloseRequest{
		ClosingAmount: *req.ClosingAmount,
		SupervisorPIN: req.SupervisorPIN,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash session closed", gin.H{
		"session": session,
		"summary": summary,
	})
}
