package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scanndine/apperr"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

type TableController struct {
	tables *service.TableService
}

func NewTableController(tables *service.TableService) *TableController {
	return &TableController{tables: tables}
}

func (tc *TableController) List(c *gin.Context) {
	tables, err := tc.tables.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Tables", tables)
}

func (tc *TableController) Create(c *gin.Context) {
	var req struct {
		Number any `json:"number" form:"number"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Number == nil {
		utils.RespondError(c, apperr.Validation("table number is required"))
		return
	}
	number, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(req.Number)))
	if err != nil {
		utils.RespondError(c, apperr.Validation("table number must be a positive integer"))
		return
	}
	table, err := tc.tables.Create(c.Request.Context(), number)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Table created", table)
}

func (tc *TableController) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := tc.tables.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Table deleted", nil)
}

func (tc *TableController) BySlug(c *gin.Context) {
	table, err := tc.tables.BySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Table", table)
}

func (tc *TableController) QR(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	table, err := tc.tables.GenerateQR(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "QR code generated", gin.H{
		"table":  table,
		"qrData": table.QRData,
		"qrUrl":  table.QRURL,
	})
}
