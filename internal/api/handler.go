package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/drupchen/dupr-server/internal/config"
	"github.com/drupchen/dupr-server/internal/ledger"
	"github.com/drupchen/dupr-server/internal/models"
	"github.com/drupchen/dupr-server/internal/repository"
	"github.com/drupchen/dupr-server/internal/service"
)

// Handler holds the dependencies for the API handlers
type Handler struct {
	svc service.Service
	nav config.NavigationConfig
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, nav config.NavigationConfig) *Handler {
	return &Handler{
		svc: svc,
		nav: nav,
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/login", h.Login)
	api.GET("/navigation", h.Navigation)

	// Teachings: viewable anonymously when public
	teachings := api.Group("/teachings", OptionalAuthMiddleware())
	teachings.GET("", h.ListTeachings)
	teachings.GET("/:slug", h.GetTeaching)

	// Authenticated
	auth := api.Group("", AuthMiddleware())
	auth.POST("/teachings", h.CreateTeaching)
	auth.GET("/categories", h.ListCategories)
	auth.POST("/categories", h.CreateCategory)
	auth.PUT("/users/:id/categories", h.SetUserCategories)

	tracker := auth.Group("/tracker")
	tracker.GET("/definitions", h.ListDefinitions)
	tracker.POST("/definitions", h.CreateDefinition)
	tracker.DELETE("/definitions/:id", h.DeleteDefinition)
	tracker.POST("/practices", h.StartTracking)
	tracker.PATCH("/practices/:id", h.SetTrackedActive)
	tracker.POST("/entries", h.CreateLogEntry)
	tracker.PUT("/entries/:id", h.UpdateLogEntry)
	tracker.DELETE("/entries/:id", h.DeleteLogEntry)
	tracker.GET("/dashboard", h.Dashboard)
	tracker.GET("/history", h.History)
}

// Auth handlers
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Navigation serves the site-wide navigation links loaded at startup
func (h *Handler) Navigation(c *gin.Context) {
	c.JSON(http.StatusOK, models.NavigationResponse{
		Status:      "success",
		YouTubeURL:  h.nav.YouTubeURL,
		FacebookURL: h.nav.FacebookURL,
	})
}

// Teaching handlers
func (h *Handler) ListTeachings(c *gin.Context) {
	teachings, err := h.svc.ListTeachings(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TeachingListResponse{
		Status:    "success",
		Teachings: teachings,
	})
}

func (h *Handler) GetTeaching(c *gin.Context) {
	teaching, err := h.svc.GetTeaching(c.Request.Context(), c.GetString("userId"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TeachingResponse{
		Status:   "success",
		Teaching: *teaching,
	})
}

func (h *Handler) CreateTeaching(c *gin.Context) {
	var req models.CreateTeachingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	teaching, err := h.svc.CreateTeaching(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TeachingResponse{
		Status:   "success",
		Teaching: *teaching,
	})
}

// Category handlers
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CategoryListResponse{
		Status:     "success",
		Categories: categories,
	})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	category, err := h.svc.CreateCategory(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *Handler) SetUserCategories(c *gin.Context) {
	var req models.SetUserCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	err := h.svc.SetUserCategories(c.Request.Context(), c.GetString("userId"), c.Param("id"), req.Categories)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Practice definition handlers
func (h *Handler) ListDefinitions(c *gin.Context) {
	defs, err := h.svc.ListAvailableDefinitions(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DefinitionListResponse{
		Status:      "success",
		Definitions: defs,
	})
}

func (h *Handler) CreateDefinition(c *gin.Context) {
	var req models.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	def, err := h.svc.CreateDefinition(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, def)
}

func (h *Handler) DeleteDefinition(c *gin.Context) {
	err := h.svc.DeleteDefinition(c.Request.Context(), c.GetString("userId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Tracker handlers
func (h *Handler) StartTracking(c *gin.Context) {
	var req models.StartTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	tracked, err := h.svc.StartTracking(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TrackedPracticeResponse{
		Status:  "success",
		Tracked: *tracked,
	})
}

func (h *Handler) SetTrackedActive(c *gin.Context) {
	var req models.SetTrackedActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	tracked, err := h.svc.SetTrackedPracticeActive(
		c.Request.Context(), c.GetString("userId"), c.Param("id"), *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TrackedPracticeResponse{
		Status:  "success",
		Tracked: *tracked,
	})
}

func (h *Handler) CreateLogEntry(c *gin.Context) {
	var req models.CreateLogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	entry, err := h.svc.CreateLogEntry(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.LogEntryResponse{
		Status: "success",
		Entry:  *entry,
	})
}

func (h *Handler) UpdateLogEntry(c *gin.Context) {
	var req models.UpdateLogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	entry, err := h.svc.UpdateLogEntry(c.Request.Context(), c.GetString("userId"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LogEntryResponse{
		Status: "success",
		Entry:  *entry,
	})
}

func (h *Handler) DeleteLogEntry(c *gin.Context) {
	err := h.svc.DeleteLogEntry(c.Request.Context(), c.GetString("userId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) History(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	entries, err := h.svc.History(c.Request.Context(), c.GetString("userId"), page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HistoryResponse{
		Status:  "success",
		Page:    page,
		Entries: entries,
	})
}

// Error mapping
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

func respondError(c *gin.Context, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    verr.Code,
			Message: verr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: "Resource not found",
		})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status:  "error",
			Code:    "ACCESS_DENIED",
			Message: "You do not have access to this teaching",
		})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status:  "error",
			Code:    "FORBIDDEN",
			Message: "You do not have permission to perform this operation",
		})
	case errors.Is(err, repository.ErrAlreadyTracked):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "ALREADY_TRACKED",
			Message: "You are already tracking this practice",
		})
	case errors.Is(err, service.ErrPracticeArchived):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "PRACTICE_ARCHIVED",
			Message: "This practice is archived; restore it before logging entries",
		})
	case errors.Is(err, service.ErrInvalidEntryDate):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_ENTRY_DATE",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "EMAIL_TAKEN",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "BAD_CREDENTIALS",
			Message: err.Error(),
		})
	case errors.Is(err, ledger.ErrOwnershipMismatch):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "OWNERSHIP_MISMATCH",
			Message: "Internal consistency error",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred",
		})
	}
}
