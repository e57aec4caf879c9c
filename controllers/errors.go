package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidID       = errors.New("invalid id")
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:        http.StatusBadRequest,
	services.KindConflict:          http.StatusConflict,
	services.KindInvalidState:      http.StatusUnprocessableEntity,
	services.KindInvalidTransition: http.StatusConflict,
	services.KindNotFound:          http.StatusNotFound,
	services.KindPaymentShortfall:  http.StatusPaymentRequired,
	services.KindOverrideRequired:  http.StatusForbidden,
}

// respondServiceError maps a ledger error to its HTTP status. Anything else
// is logged and reported as an internal error without details.
func respondServiceError(c *gin.Context, err error) {
	var le *services.Error
	if !errors.As(err, &le) {
		_ = c.Error(err)
		utils.ErrorLogger.WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"company_id": c.GetUint(middlewares.ContextCompanyID),
		}).Errorf("internal error: %v", err)
		utils.RespondErrorCode(c, http.StatusInternalServerError, "internal", errors.New("internal server error"), nil)
		return
	}

	var details interface{}
	var shortfall *services.ShortfallError
	if errors.As(err, &shortfall) {
		details = gin.H{"order_id": shortfall.OrderID, "due": shortfall.Due, "paid": shortfall.Paid}
	}
	utils.RespondErrorCode(c, kindStatus[le.Kind], string(le.Kind), le, details)
}

// identity fetches the caller or answers 401.
func identity(c *gin.Context) (userID, companyID uint, ok bool) {
	userID, companyID, ok = middlewares.Identity(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
	}
	return userID, companyID, ok
}

// paramID parses a positive numeric path parameter or answers 400.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("%w: %s", ErrInvalidID, name))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, string(services.KindValidation), err, nil)
		return false
	}
	return true
}
