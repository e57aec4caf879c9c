package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type KDSController struct {
	Hub *kds.Hub
}

func NewKDSController(hub *kds.Hub) *KDSController {
	return &KDSController{Hub: hub}
}

// KDSHandler -> websocket stream of the caller's company events. With
// ?order_id= only that order's events are delivered.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var orderID uint
	if raw := c.Query("order_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, ErrInvalidID)
			return
		}
		orderID = uint(id)
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("kds: upgrade: %v", err)
		return
	}
	kc.Hub.Serve(ws, kds.Subscription{
		CompanyID: companyID,
		OrderID:   orderID,
		Role:      c.GetString(middlewares.ContextRole),
	})
}
