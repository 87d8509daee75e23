package backend

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jo-hoe/imageroulette/internal/common"
	"github.com/jo-hoe/imageroulette/internal/core"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName      = "imageroulette_admin"
	sessionAuthKey   = "authenticated"
	sessionUserKey   = "username"
	sessionMaxAgeSec = 24 * 60 * 60
)

// APIService serves the admin login and the admin panel API
type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
	sessions    sessions.Store
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type toggleResponse struct {
	ID     string `json:"id"`
	Hidden bool   `json:"hidden"`
}

type adminImagesResponse struct {
	Items      []core.ImageSummary  `json:"items"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"perPage"`
	TotalItems int                  `json:"totalItems"`
	TotalPages int                  `json:"totalPages"`
	Stats      common.StatsResponse `json:"stats"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	store := sessions.NewCookieStore([]byte(config.Admin.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAgeSec,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}

	return &APIService{
		coreService: coreService,
		config:      config,
		sessions:    store,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.POST("/admin/login", s.loginHandler)
	e.POST("/admin/logout", s.logoutHandler)

	admin := e.Group("/api/admin", s.requireAdmin)
	admin.GET("/stats", s.statsHandler)
	admin.GET("/images", s.listImagesHandler)
	admin.POST("/images/:id/toggle-visibility", s.toggleVisibilityHandler)
	admin.DELETE("/images/:id", s.deleteImageHandler)
}

func (s *APIService) loginHandler(ctx echo.Context) error {
	if !s.config.AdminEnabled() {
		return ctx.JSON(http.StatusServiceUnavailable, common.ErrorResponse{Error: "admin access is not configured"})
	}

	reqCtx := ctx.Request().Context()
	limiter := s.coreService.LoginLimiter()
	clientKey := "login:" + ctx.RealIP()

	allowed, err := limiter.Allow(reqCtx, clientKey)
	if err != nil {
		slog.Error("loginHandler: rate limiter unavailable", "error", err)
		return ctx.JSON(http.StatusInternalServerError, common.ErrorResponse{Error: "internal server error"})
	}
	if !allowed {
		slog.Warn("loginHandler: too many failed attempts", "remote_ip", ctx.RealIP())
		return ctx.JSON(http.StatusTooManyRequests, common.ErrorResponse{Error: "too many login attempts, try again later"})
	}

	var req LoginRequest
	if err := common.BindAndValidate(ctx, &req); err != nil {
		return err
	}

	if !s.checkCredentials(req.Username, req.Password) {
		if err := limiter.RecordFailure(reqCtx, clientKey); err != nil {
			slog.Error("loginHandler: failed to record attempt", "error", err)
		}
		slog.Warn("loginHandler: invalid credentials", "remote_ip", ctx.RealIP())
		return ctx.JSON(http.StatusUnauthorized, common.ErrorResponse{Error: "invalid credentials"})
	}

	if err := limiter.Reset(reqCtx, clientKey); err != nil {
		slog.Warn("loginHandler: failed to reset attempts", "error", err)
	}

	session, _ := s.sessions.Get(ctx.Request(), sessionName)
	session.Values[sessionAuthKey] = true
	session.Values[sessionUserKey] = req.Username
	if err := session.Save(ctx.Request(), ctx.Response()); err != nil {
		slog.Error("loginHandler: failed to save session", "error", err)
		return ctx.JSON(http.StatusInternalServerError, common.ErrorResponse{Error: "internal server error"})
	}

	slog.Info("admin logged in", "username", req.Username, "remote_ip", ctx.RealIP())
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}

// checkCredentials always runs bcrypt so a wrong username takes as long as a wrong password
func (s *APIService) checkCredentials(username, password string) bool {
	hashErr := bcrypt.CompareHashAndPassword([]byte(s.config.Admin.PasswordHash), []byte(password))
	return hashErr == nil && username == s.config.Admin.Username
}

func (s *APIService) logoutHandler(ctx echo.Context) error {
	session, _ := s.sessions.Get(ctx.Request(), sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(ctx.Request(), ctx.Response()); err != nil {
		slog.Error("logoutHandler: failed to clear session", "error", err)
		return ctx.JSON(http.StatusInternalServerError, common.ErrorResponse{Error: "internal server error"})
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *APIService) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		session, err := s.sessions.Get(ctx.Request(), sessionName)
		if err != nil || session.Values[sessionAuthKey] != true {
			return ctx.JSON(http.StatusUnauthorized, common.ErrorResponse{Error: "authentication required"})
		}
		return next(ctx)
	}
}

func (s *APIService) statsHandler(ctx echo.Context) error {
	stats, err := s.coreService.Stats(ctx.Request().Context())
	if err != nil {
		return common.RespondError(ctx, "statsHandler", err)
	}
	common.SetNoCache(ctx)
	return ctx.JSON(http.StatusOK, common.NewStatsResponse(stats))
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	page, err := common.PageParam(ctx)
	if err != nil {
		return err
	}

	adminPage, err := s.coreService.AdminImages(ctx.Request().Context(), page)
	if err != nil {
		return common.RespondError(ctx, "listImagesHandler", err)
	}

	common.SetNoCache(ctx)
	return ctx.JSON(http.StatusOK, adminImagesResponse{
		Items:      adminPage.Items,
		Page:       adminPage.Page.Page,
		PerPage:    adminPage.PerPage,
		TotalItems: adminPage.TotalItems,
		TotalPages: adminPage.TotalPages,
		Stats:      common.NewStatsResponse(adminPage.Stats),
	})
}

func (s *APIService) toggleVisibilityHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	hidden, err := s.coreService.ToggleVisibility(ctx.Request().Context(), id)
	if err != nil {
		return common.RespondError(ctx, "toggleVisibilityHandler", err)
	}
	return ctx.JSON(http.StatusOK, toggleResponse{ID: id, Hidden: hidden})
}

func (s *APIService) deleteImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := s.coreService.DeleteImage(ctx.Request().Context(), id); err != nil {
		return common.RespondError(ctx, "deleteImageHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
