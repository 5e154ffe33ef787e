package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scanndine/auth"
	"scanndine/controller"
	"scanndine/database"
	"scanndine/metrics"
	"scanndine/model"
	"scanndine/realtime"
	"scanndine/repository"
	"scanndine/service"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	gate   *utils.Gate
	hub    *realtime.Hub
	db     *gorm.DB
	users  *repository.UserRepository
	menu   *service.MenuService
	tables *service.TableService
}

func newTestAPI(t *testing.T, limiter *utils.RateLimiter) *testAPI {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log, _ := test.NewNullLogger()
	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(nil, log, m)
	go hub.Run(ctx)

	users := repository.NewUserRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	hasher := auth.NewPasswordHasher(4)
	tokens := utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)

	authSvc := service.NewAuthService(users, hasher, tokens, log)
	staffSvc := service.NewStaffService(users, repository.NewQueryRepository(db), authSvc, hasher, m, log)
	menuSvc := service.NewMenuService(menuRepo, utils.NewImageStore(t.TempDir(), "http://api.test"), log)
	tableSvc := service.NewTableService(repository.NewTableRepository(db), utils.RenderQR, "http://front.test", log)
	orderSvc := service.NewOrderService(orderRepo, menuRepo, tableSvc, realtime.NewNotifier(hub, nil, log), m, log)

	if limiter == nil {
		limiter = utils.NewRateLimiter(1000, 1000)
	}
	gate := utils.NewGate(tokens, users)
	router := NewEngine(Options{
		Controllers: Controllers{
			Auth:     controller.NewAuthController(authSvc),
			Staff:    controller.NewStaffController(staffSvc),
			Category: controller.NewCategoryController(menuSvc),
			Item:     controller.NewItemController(menuSvc),
			Table:    controller.NewTableController(tableSvc),
			Order:    controller.NewOrderController(orderSvc, service.NewAnalyticsService(orderRepo), hub),
		},
		Gate:    gate,
		Limiter: limiter,
		Metrics: m,
		DB:      db,
		Log:     log,
	})
	return &testAPI{t: t, router: router, gate: gate, hub: hub, db: db, users: users, menu: menuSvc, tables: tableSvc}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// register signs a user up over HTTP and returns the access token.
func (a *testAPI) register(name, email string, role model.UserRole) (string, model.User) {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[service.AuthResult](a.t, env)
	return res.AccessToken, *res.User
}

func (a *testAPI) menuItem(price string) *model.MenuItem {
	a.t.Helper()
	cat, err := a.menu.CreateCategory(context.Background(), service.CategoryInput{Name: "Mains"})
	require.NoError(a.t, err)
	name := "Dish " + price
	item, err := a.menu.CreateItem(context.Background(), service.ItemInput{
		Name:       &name,
		Price:      &price,
		CategoryID: &cat.ID,
	})
	require.NoError(a.t, err)
	return item
}

func (a *testAPI) table(number int) *model.Table {
	a.t.Helper()
	tb, err := a.tables.Create(context.Background(), number)
	require.NoError(a.t, err)
	return tb
}

func TestEveryRouteHasAPolicy(t *testing.T) {
	api := newTestAPI(t, nil)
	for _, r := range api.router.Routes() {
		_, ok := api.gate.PolicyFor(r.Method, r.Path)
		assert.True(t, ok, "%s %s has no policy", r.Method, r.Path)
	}
}

func TestGateDeniesRouteWithoutPolicy(t *testing.T) {
	api := newTestAPI(t, nil)
	api.router.GET("/api/unlisted", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec, env := api.do(http.MethodGet, "/api/unlisted", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", env.Code)
}

func TestGateRejectsMissingAndBadTokens(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, env := api.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", env.Code)
	assert.False(t, env.Success)

	rec, env = api.do(http.MethodGet, "/api/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", env.Code)
}

func TestGateForbidsWrongRole(t *testing.T) {
	api := newTestAPI(t, nil)
	token, _ := api.register("Cara", "cara@example.com", model.RoleCustomer)

	rec, env := api.do(http.MethodGet, "/api/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", env.Code)

	rec, _ = api.do(http.MethodGet, "/api/tables", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnapprovedStaffTokenIsRejected(t *testing.T) {
	api := newTestAPI(t, nil)
	token, staff := api.register("Sam", "sam@example.com", model.RoleStaff)
	assert.False(t, staff.IsApproved)

	rec, env := api.do(http.MethodGet, "/api/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unapproved", env.Code)

	adminToken, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)
	rec, _ = api.do(http.MethodPatch, fmt.Sprintf("/api/auth/approve-staff/%d", staff.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodGet, "/api/orders", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterIgnoresApprovalFlag(t *testing.T) {
	api := newTestAPI(t, nil)
	rec, env := api.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Sneaky", "email": "sneaky@example.com", "password": "secret123",
		"role": "staff", "isApproved": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[service.AuthResult](t, env)
	assert.False(t, res.User.IsApproved)

	stored, err := api.users.FindByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsApproved)

	rec, env = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "sneaky@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PendingApproval", env.Code)
}

func TestGuestPlacesOrder(t *testing.T) {
	api := newTestAPI(t, nil)
	api.table(7)
	item := api.menuItem("50")

	rec, env := api.do(http.MethodPost, "/api/orders", "", gin.H{
		"tableId": "7",
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[model.Order](t, env)
	assert.True(t, decimal.NewFromInt(100).Equal(order.Totals))
	assert.Nil(t, order.UserID)
	assert.Equal(t, model.OrderPlaced, order.Status)

	rec, env = api.do(http.MethodGet, "/api/orders/me?table=table-7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, env), 1)
}

func TestPlaceOrderUnknownTable(t *testing.T) {
	api := newTestAPI(t, nil)
	item := api.menuItem("50")

	rec, env := api.do(http.MethodPost, "/api/orders", "", gin.H{
		"tableId": 99,
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TableNotFound", env.Code)
}

func TestCustomerSeesOwnOrdersIncludingCleared(t *testing.T) {
	api := newTestAPI(t, nil)
	api.table(3)
	item := api.menuItem("12.50")
	customer, _ := api.register("Cara", "cara@example.com", model.RoleCustomer)
	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)

	rec, env := api.do(http.MethodPost, "/api/orders", customer, gin.H{
		"tableId": 3,
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	mine := decode[model.Order](t, env)
	require.NotNil(t, mine.UserID)

	// a guest order on the same table must not show up for the customer
	rec, _ = api.do(http.MethodPost, "/api/orders", "", gin.H{
		"tableId": 3,
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/orders/%d", mine.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodGet, "/api/orders/me", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]model.Order](t, env)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)
	assert.Equal(t, model.OrderCleared, orders[0].Status)

	rec, env = api.do(http.MethodGet, "/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[[]model.Order](t, env)
	require.Len(t, active, 1)
	assert.NotEqual(t, mine.ID, active[0].ID)
}

func TestGuestHistoryNeedsTable(t *testing.T) {
	api := newTestAPI(t, nil)
	rec, env := api.do(http.MethodGet, "/api/orders/me", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TableReferenceRequired", env.Code)
}

func TestTrackOrderNeedsTableOrOwnership(t *testing.T) {
	api := newTestAPI(t, nil)
	api.table(2)
	api.table(8)
	item := api.menuItem("9")
	customer, _ := api.register("Cy", "cy@example.com", model.RoleCustomer)
	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)

	rec, env := api.do(http.MethodPost, "/api/orders", "", gin.H{
		"tableId": 2,
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	guestOrder := decode[model.Order](t, env)

	rec, env = api.do(http.MethodPost, "/api/orders", customer, gin.H{
		"tableId": 8,
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	owned := decode[model.Order](t, env)

	guestPath := fmt.Sprintf("/api/orders/%d", guestOrder.ID)
	rec, env = api.do(http.MethodGet, guestPath, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TableReferenceRequired", env.Code)

	rec, env = api.do(http.MethodGet, guestPath+"?table=8", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "OrderNotFound", env.Code)

	rec, env = api.do(http.MethodGet, guestPath+"?table=table-2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, guestOrder.ID, decode[model.Order](t, env).ID)

	rec, _ = api.do(http.MethodGet, guestPath, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(http.MethodGet, guestPath, customer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = api.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", owned.ID), customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, owned.ID, decode[model.Order](t, env).ID)
}

func TestStaffReadsAnalytics(t *testing.T) {
	api := newTestAPI(t, nil)
	api.table(1)
	cheap := api.menuItem("50")
	dear := api.menuItem("125")

	for _, line := range []gin.H{
		{"menuItemId": cheap.ID, "qty": 2},
		{"menuItemId": dear.ID, "qty": 2},
	} {
		rec, _ := api.do(http.MethodPost, "/api/orders", "", gin.H{"tableId": 1, "items": []gin.H{line}})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)
	staffToken, staff := api.register("Sam", "sam@example.com", model.RoleStaff)
	rec, _ := api.do(http.MethodPatch, fmt.Sprintf("/api/auth/approve-staff/%d", staff.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := api.do(http.MethodGet, "/api/orders/analytics", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[service.Report](t, env)
	assert.EqualValues(t, 2, report.TotalOrders)
	assert.True(t, decimal.NewFromInt(350).Equal(report.TotalRevenue))
	assert.Len(t, report.Items, 2)

	rec, _ = api.do(http.MethodGet, "/api/orders/analytics/export", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestTableRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)

	rec, env := api.do(http.MethodPost, "/api/tables", admin, gin.H{"number": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	table := decode[model.Table](t, env)
	assert.Equal(t, "table-7", table.QRSlug)

	rec, env = api.do(http.MethodPost, "/api/tables", admin, gin.H{"number": "7"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DuplicateTable", env.Code)

	rec, env = api.do(http.MethodGet, "/api/tables/slug/table-7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, table.ID, decode[model.Table](t, env).ID)

	rec, env = api.do(http.MethodGet, fmt.Sprintf("/api/tables/%d/qr", table.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	qr := decode[struct {
		QRData string `json:"qrData"`
		QRURL  string `json:"qrUrl"`
	}](t, env)
	assert.True(t, strings.HasPrefix(qr.QRData, "data:image/png;base64,"))
	assert.Equal(t, "http://front.test/menu?table=table-7", qr.QRURL)
}

func TestPublicMenuHidesUnavailableItems(t *testing.T) {
	api := newTestAPI(t, nil)
	item := api.menuItem("9")
	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)

	rec, _ := api.do(http.MethodPatch, fmt.Sprintf("/api/menu/items/%d/availability", item.ID), admin, gin.H{"availability": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := api.do(http.MethodGet, "/api/menu/items", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, string(env.Data), item.Name)

	rec, env = api.do(http.MethodGet, "/api/menu/items?all=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), item.Name)
}

func TestLoginIsRateLimited(t *testing.T) {
	api := newTestAPI(t, utils.NewRateLimiter(0.001, 1))
	body := gin.H{"email": "nobody@example.com", "password": "whatever"}

	rec, _ := api.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := api.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RateLimited", env.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, env := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = api.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", env.Code)

	rec, _ = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scanndine_http_requests_total")
}

func TestStaffStreamReceivesPlacedOrder(t *testing.T) {
	api := newTestAPI(t, nil)
	api.table(2)
	item := api.menuItem("8")
	admin, _ := api.register("Ada", "ada@example.com", model.RoleAdmin)

	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/stream?token=" + admin
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return api.hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	rec, _ := api.do(http.MethodPost, "/api/orders", "", gin.H{
		"tableId": "table-2",
		"items":   []gin.H{{"menuItemId": item.ID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.OrderEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventOrderPlaced, ev.Type)
	require.NotNil(t, ev.Order)
	assert.EqualValues(t, 2, ev.Order.Table.Number)
}
