package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/realtime"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orders    *service.OrderService
	analytics *service.AnalyticsService
	hub       *realtime.Hub
}

func NewOrderController(orders *service.OrderService, analytics *service.AnalyticsService, hub *realtime.Hub) *OrderController {
	return &OrderController{orders: orders, analytics: analytics, hub: hub}
}

type orderLineRequest struct {
	MenuItemID uint   `json:"menuItemId"`
	Qty        int    `json:"qty"`
	Note       string `json:"note"`
}

type placeOrderRequest struct {
	TableID any                `json:"tableId"`
	Items   []orderLineRequest `json:"items"`
}

// Place accepts orders from guests and signed-in users alike. tableId may
// be a table number or its slug.
func (oc *OrderController) Place(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	var tableRef string
	if req.TableID != nil {
		tableRef = strings.TrimSpace(fmt.Sprint(req.TableID))
	}
	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, service.OrderLine{MenuItemID: it.MenuItemID, Qty: it.Qty, Note: it.Note})
	}

	order, err := oc.orders.PlaceOrder(c.Request.Context(), tableRef, lines, auth.FromGin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Order placed", order)
}

// List is the staff queue, filterable by status and table.
func (oc *OrderController) List(c *gin.Context) {
	f := service.ActiveFilter{
		Status:   c.Query("status"),
		TableRef: c.Query("table"),
	}
	if raw := c.Query("tableId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.RespondError(c, apperr.Validation("invalid tableId"))
			return
		}
		f.TableID = uint(id)
	}
	orders, err := oc.orders.ActiveOrders(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Active orders", orders)
}

// Get lets guests track an order with ?table=; signed-in owners and staff
// need no table.
func (oc *OrderController) Get(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.orders.TrackOrder(c.Request.Context(), id, c.Query("table"), auth.FromGin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Order", order)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Status == "" {
		utils.RespondError(c, apperr.Validation("status is required"))
		return
	}
	order, err := oc.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) Clear(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.orders.ClearOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Order cleared", order)
}

// Mine returns the caller's order history: by account for customers, by
// ?table= for guests.
func (oc *OrderController) Mine(c *gin.Context) {
	orders, err := oc.orders.CustomerOrders(c.Request.Context(), c.Query("table"), auth.FromGin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Your orders", orders)
}

func (oc *OrderController) Analytics(c *gin.Context) {
	report, err := oc.analytics.Report(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Order analytics", report)
}

func (oc *OrderController) AnalyticsExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := oc.analytics.Export(c.Request.Context(), &buf); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", oc.analytics.ExportFilename()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Stream pushes every order event to the staff dashboard.
func (oc *OrderController) Stream(c *gin.Context) {
	oc.hub.Serve(c, []string{realtime.StaffChannel})
}

// MyStream pushes updates for the caller's own orders.
func (oc *OrderController) MyStream(c *gin.Context) {
	channels, err := oc.orders.CustomerChannels(c.Request.Context(), c.Query("table"), auth.FromGin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	oc.hub.Serve(c, channels)
}
