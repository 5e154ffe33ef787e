package route

import (
	"context"
	"net/http"
	"time"

	"scanndine/apperr"
	"scanndine/controller"
	"scanndine/logging"
	"scanndine/metrics"
	"scanndine/model"
	"scanndine/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const APIPrefix = "/api"

// Route is one row of the API table. Path is relative to APIPrefix.
type Route struct {
	Method      string
	Path        string
	Handler     gin.HandlerFunc
	Policy      utils.Policy
	RateLimited bool
}

type Controllers struct {
	Auth     *controller.AuthController
	Staff    *controller.StaffController
	Category *controller.CategoryController
	Item     *controller.ItemController
	Table    *controller.TableController
	Order    *controller.OrderController
}

// APIRoutes is the full access policy table for the API.
func APIRoutes(h Controllers) []Route {
	admin := utils.Roles(model.RoleAdmin)
	staff := utils.Roles(model.RoleStaff)
	crew := utils.Roles(model.RoleStaff, model.RoleAdmin)
	signedIn := utils.Authenticated()
	public := utils.Public()
	optional := utils.Optional()

	return []Route{
		{Method: http.MethodPost, Path: "/auth/register", Handler: h.Auth.Register, Policy: public, RateLimited: true},
		{Method: http.MethodPost, Path: "/auth/login", Handler: h.Auth.Login, Policy: public, RateLimited: true},
		{Method: http.MethodPost, Path: "/auth/refresh", Handler: h.Auth.Refresh, Policy: public, RateLimited: true},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: h.Auth.Logout, Policy: signedIn},
		{Method: http.MethodGet, Path: "/auth/check-admin", Handler: h.Auth.CheckAdmin, Policy: public},

		{Method: http.MethodGet, Path: "/auth/pending-staff", Handler: h.Staff.Pending, Policy: admin},
		{Method: http.MethodPatch, Path: "/auth/approve-staff/:id", Handler: h.Staff.Approve, Policy: admin},
		{Method: http.MethodDelete, Path: "/auth/reject-staff/:id", Handler: h.Staff.Reject, Policy: admin},
		{Method: http.MethodPost, Path: "/auth/add-staff", Handler: h.Staff.Add, Policy: admin},
		{Method: http.MethodDelete, Path: "/auth/remove-staff/:id", Handler: h.Staff.Remove, Policy: crew},
		{Method: http.MethodGet, Path: "/auth/all-staff", Handler: h.Staff.AllStaff, Policy: admin},
		{Method: http.MethodGet, Path: "/auth/staff-details", Handler: h.Staff.Details, Policy: signedIn},
		{Method: http.MethodPut, Path: "/auth/staff-details", Handler: h.Staff.UpdateDetails, Policy: signedIn},
		{Method: http.MethodPut, Path: "/auth/update-details", Handler: h.Staff.UpdateDetails, Policy: signedIn},
		{Method: http.MethodDelete, Path: "/auth/staff-details", Handler: h.Staff.RemoveSelf, Policy: staff},
		{Method: http.MethodPost, Path: "/auth/queries", Handler: h.Staff.SendQuery, Policy: staff},
		{Method: http.MethodGet, Path: "/auth/queries", Handler: h.Staff.Queries, Policy: admin},
		{Method: http.MethodPatch, Path: "/auth/queries/:id/resolve", Handler: h.Staff.ResolveQuery, Policy: admin},
		{Method: http.MethodDelete, Path: "/auth/queries/:id", Handler: h.Staff.DeleteQuery, Policy: admin},

		{Method: http.MethodGet, Path: "/menu/categories", Handler: h.Category.List, Policy: optional},
		{Method: http.MethodPost, Path: "/menu/categories", Handler: h.Category.Create, Policy: admin},
		{Method: http.MethodPut, Path: "/menu/categories/:id", Handler: h.Category.Update, Policy: admin},
		{Method: http.MethodDelete, Path: "/menu/categories/:id", Handler: h.Category.Delete, Policy: admin},
		{Method: http.MethodGet, Path: "/menu/items", Handler: h.Item.List, Policy: optional},
		{Method: http.MethodGet, Path: "/menu/items/:id", Handler: h.Item.Get, Policy: public},
		{Method: http.MethodPost, Path: "/menu/items", Handler: h.Item.Create, Policy: admin},
		{Method: http.MethodPost, Path: "/menu/items/import", Handler: h.Item.Import, Policy: admin},
		{Method: http.MethodPut, Path: "/menu/items/:id", Handler: h.Item.Update, Policy: admin},
		{Method: http.MethodPatch, Path: "/menu/items/:id/availability", Handler: h.Item.SetAvailability, Policy: admin},
		{Method: http.MethodDelete, Path: "/menu/items/:id", Handler: h.Item.Delete, Policy: admin},

		{Method: http.MethodGet, Path: "/tables", Handler: h.Table.List, Policy: admin},
		{Method: http.MethodPost, Path: "/tables", Handler: h.Table.Create, Policy: admin},
		{Method: http.MethodDelete, Path: "/tables/:id", Handler: h.Table.Delete, Policy: admin},
		{Method: http.MethodGet, Path: "/tables/:id/qr", Handler: h.Table.QR, Policy: admin},
		{Method: http.MethodGet, Path: "/tables/slug/:slug", Handler: h.Table.BySlug, Policy: public},

		{Method: http.MethodPost, Path: "/orders", Handler: h.Order.Place, Policy: optional, RateLimited: true},
		{Method: http.MethodGet, Path: "/orders", Handler: h.Order.List, Policy: crew},
		{Method: http.MethodGet, Path: "/orders/me", Handler: h.Order.Mine, Policy: optional},
		{Method: http.MethodGet, Path: "/orders/me/stream", Handler: h.Order.MyStream, Policy: optional},
		{Method: http.MethodGet, Path: "/orders/stream", Handler: h.Order.Stream, Policy: crew},
		{Method: http.MethodGet, Path: "/orders/analytics", Handler: h.Order.Analytics, Policy: crew},
		{Method: http.MethodGet, Path: "/orders/analytics/export", Handler: h.Order.AnalyticsExport, Policy: crew},
		{Method: http.MethodGet, Path: "/orders/:id", Handler: h.Order.Get, Policy: optional},
		{Method: http.MethodPatch, Path: "/orders/:id/status", Handler: h.Order.UpdateStatus, Policy: crew},
		{Method: http.MethodDelete, Path: "/orders/:id", Handler: h.Order.Clear, Policy: crew},
	}
}

// Register mounts routes under APIPrefix and records each policy on gate.
func Register(r *gin.Engine, gate *utils.Gate, limiter *utils.RateLimiter, routes []Route) {
	api := r.Group(APIPrefix)
	for _, rt := range routes {
		handlers := make([]gin.HandlerFunc, 0, 2)
		if rt.RateLimited && limiter != nil {
			handlers = append(handlers, limiter.Middleware())
		}
		handlers = append(handlers, rt.Handler)
		api.Handle(rt.Method, rt.Path, handlers...)
		gate.Allow(rt.Method, APIPrefix+rt.Path, rt.Policy)
	}
}

// Options carries everything NewEngine wires together.
type Options struct {
	Controllers Controllers
	Gate        *utils.Gate
	Limiter     *utils.RateLimiter
	Metrics     *metrics.Metrics
	DB          *gorm.DB
	UploadDir   string
	Origins     []string
	Log         logrus.FieldLogger
}

// NewEngine builds the gin engine with the middleware chain and every route.
func NewEngine(opts Options) *gin.Engine {
	corsCfg := cors.Config{
		AllowOrigins:     opts.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.Origins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		logging.RequestID(),
		logging.AccessLog(opts.Log),
		cors.New(corsCfg),
		opts.Metrics.Middleware(),
		opts.Gate.Middleware(),
	)

	Register(r, opts.Gate, opts.Limiter, APIRoutes(opts.Controllers))

	r.GET("/health", health(opts.DB))
	opts.Gate.Allow(http.MethodGet, "/health", utils.Public())
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	opts.Gate.Allow(http.MethodGet, "/metrics", utils.Public())
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
		opts.Gate.Allow(http.MethodGet, "/uploads/*filepath", utils.Public())
		opts.Gate.Allow(http.MethodHead, "/uploads/*filepath", utils.Public())
	}

	r.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, apperr.NotFound(apperr.CodeNotFound, "route not found"))
	})
	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			utils.RespondError(c, apperr.Upstream("health check", err))
			return
		}
		utils.Respond(c, http.StatusOK, "ok", gin.H{"database": "up"})
	}
}
