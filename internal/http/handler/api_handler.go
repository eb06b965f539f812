package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"github.com/sifan077/MailPulse/internal/app/service"
	"github.com/sifan077/MailPulse/internal/http/middleware"
	httpUtil "github.com/sifan077/MailPulse/internal/http/util"
	"go.uber.org/zap"
)

// ActivityReader returns recent engagement events visible to a caller.
type ActivityReader interface {
	Recent(ctx context.Context, caller model.Caller, limit int) ([]model.EngagementEvent, error)
}

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger        *zap.Logger
	Queries       service.TrackingQueryService
	Dispatcher    service.EmailDispatcher
	Admin         service.AdminService
	Activity      ActivityReader
	PublicBaseURL string
	Location      *time.Location
}

// APIHandler implements the dashboard API endpoints.
type APIHandler struct {
	logger        *zap.Logger
	queries       service.TrackingQueryService
	dispatcher    service.EmailDispatcher
	admin         service.AdminService
	activity      ActivityReader
	publicBaseURL string
	present       presenter
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:        logger,
		queries:       deps.Queries,
		dispatcher:    deps.Dispatcher,
		admin:         deps.Admin,
		activity:      deps.Activity,
		publicBaseURL: deps.PublicBaseURL,
		present:       newPresenter(deps.Location),
	}
}

// Register wires API routes onto a router that already authenticates callers.
func (h *APIHandler) Register(api fiber.Router) {
	tracking := api.Group("/tracking")
	{
		tracking.Get("/", h.ListTracking)
		tracking.Get("/:id/details", h.TrackingDetails)
	}
	api.Get("/activity", h.RecentActivity)
	api.Post("/send-email", h.SendEmail)
	api.Post("/admin/clear-database", middleware.RequireAdmin(), h.ClearDatabase)
}

// ListTracking handles GET /api/tracking
func (h *APIHandler) ListTracking(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}

	pageSize := c.QueryInt("page_size", 0)
	if pageSize == 0 {
		pageSize = c.QueryInt("per_page", 0)
	}

	result, err := h.queries.List(requestContext(c), service.ListInput{
		Page:     c.QueryInt("page", 1),
		PageSize: pageSize,
		Search:   c.Query("search"),
	}, caller)
	if err != nil {
		h.logger.Error("failed to list tracking records", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to load tracking data")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"data":         h.present.trackings(result.Items),
		"total":        result.Total,
		"pages":        result.Pages,
		"current_page": result.Page,
		"per_page":     result.PageSize,
	})
}

// TrackingDetails handles GET /api/tracking/:id/details
func (h *APIHandler) TrackingDetails(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id := c.Params("id")
	detail, err := h.queries.Detail(requestContext(c), id, caller)
	switch {
	case errors.Is(err, repository.ErrTrackingNotFound):
		return fail(c, fiber.StatusNotFound, "Tracking record not found")
	case errors.Is(err, service.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Access denied")
	case err != nil:
		h.logger.Error("failed to load tracking details", zap.String("tracking_id", id), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to load tracking details")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"tracking": h.present.tracking(detail.Record),
		"opens":    h.present.opens(detail.Opens),
		"clicks":   h.present.clicks(detail.Clicks),
	})
}

// SendEmail handles POST /api/send-email
func (h *APIHandler) SendEmail(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.SendBatchInput
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	baseURL := httpUtil.BaseURL(c, h.publicBaseURL)
	results, err := h.dispatcher.SendBatch(requestContext(c), req, baseURL, caller)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": verr.Error(),
				"field":   verr.Field,
			})
		}
		h.logger.Error("failed to send emails", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to send emails")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Processed %d emails", len(results)),
		"results": results,
	})
}

type clearDatabaseRequest struct {
	Confirmation string `json:"confirmation"`
}

// ClearDatabase handles POST /api/admin/clear-database
func (h *APIHandler) ClearDatabase(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req clearDatabaseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	res, err := h.admin.ClearDatabase(requestContext(c), req.Confirmation, caller)
	switch {
	case errors.Is(err, service.ErrInvalidConfirmation):
		return fail(c, fiber.StatusBadRequest, "Invalid confirmation")
	case errors.Is(err, service.ErrAdminRequired):
		return fail(c, fiber.StatusForbidden, "admin privileges required")
	case err != nil:
		h.logger.Error("failed to clear database", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to clear database")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "All tracking data has been deleted successfully",
		"deleted": res,
	})
}

// RecentActivity handles GET /api/activity
func (h *APIHandler) RecentActivity(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	if h.activity == nil {
		return c.JSON(fiber.Map{"success": true, "data": []ActivityResponse{}})
	}

	events, err := h.activity.Recent(requestContext(c), caller, c.QueryInt("limit", 0))
	if err != nil {
		h.logger.Warn("failed to read activity feed", zap.Error(err))
		return fail(c, fiber.StatusServiceUnavailable, "activity feed unavailable")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.present.activity(events),
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, "authentication required")
}
