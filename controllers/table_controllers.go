package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// GetAllTables -> tables of the caller's company, by number
func (tc *TableController) GetAllTables(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	tables, err := tc.Tables.ListTables(c.Request.Context(), companyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTableByID(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.GetTable(c.Request.Context(), companyID, tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var req struct {
		Number   string `json:"number" binding:"required"`
		Capacity int    `json:"capacity" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	table, err := tc.Tables.RegisterTable(c.Request.Context(), companyID, req.Number, req.Capacity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) ReserveTable(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.ReserveTable(c.Request.Context(), companyID, tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table reserved", table)
}

func (tc *TableController) CancelReservation(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.CancelReservation(c.Request.Context(), companyID, tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Tables.DeleteTable(c.Request.Context(), companyID, tableID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": tableID})
}
