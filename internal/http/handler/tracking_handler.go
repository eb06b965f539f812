package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/MailPulse/internal/app/service"
	httpUtil "github.com/sifan077/MailPulse/internal/http/util"
	"go.uber.org/zap"
)

// transparentGIF is a 1x1 transparent GIF89a.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
	0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

const defaultRedirectURL = "https://www.google.com"

// TrackingDeps groups dependencies required by the public tracking endpoints.
type TrackingDeps struct {
	Logger             *zap.Logger
	Recorder           service.EventRecorder
	DefaultRedirectURL string
}

// TrackingHandler serves the pixel and click-redirect endpoints. Both record
// first, discard any recording failure, then always answer.
type TrackingHandler struct {
	logger          *zap.Logger
	recorder        service.EventRecorder
	defaultRedirect string
}

// NewTrackingHandler creates a tracking handler with the provided dependencies.
func NewTrackingHandler(deps TrackingDeps) *TrackingHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	redirect := deps.DefaultRedirectURL
	if !httpUtil.IsHTTPURL(redirect) {
		redirect = defaultRedirectURL
	}
	return &TrackingHandler{
		logger:          logger,
		recorder:        deps.Recorder,
		defaultRedirect: redirect,
	}
}

// Register wires tracking routes onto the provided router.
func (h *TrackingHandler) Register(router fiber.Router) {
	router.Get("/track/:file", h.Pixel)
	router.Get("/click/:id", h.Click)
}

// Pixel handles GET /track/:id.gif. Only the .gif form records an open;
// every other path under /track still gets the image.
func (h *TrackingHandler) Pixel(c *fiber.Ctx) error {
	id, ok := strings.CutSuffix(c.Params("file"), ".gif")
	if !ok {
		id = ""
	}
	hit := h.hit(c, id)

	h.attempt(c, "open", hit, func(ctx context.Context) error {
		return h.recorder.RecordOpen(ctx, hit)
	})

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	c.Set(fiber.HeaderContentType, "image/gif")
	return c.Status(fiber.StatusOK).Send(transparentGIF)
}

// Click handles GET /click/:id?redirect=
func (h *TrackingHandler) Click(c *fiber.Ctx) error {
	target := c.Query("redirect")
	if !httpUtil.IsHTTPURL(target) {
		target = h.defaultRedirect
	}

	hit := h.hit(c, c.Params("id"))
	hit.RedirectURL = target

	h.attempt(c, "click", hit, func(ctx context.Context) error {
		return h.recorder.RecordClick(ctx, hit)
	})

	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	return c.Redirect(target, fiber.StatusFound)
}

func (h *TrackingHandler) hit(c *fiber.Ctx, trackingID string) service.TrackingHit {
	return service.TrackingHit{
		TrackingID: trackingID,
		IP:         httpUtil.ClientIP(c),
		Port:       httpUtil.ClientPort(c),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	}
}

// attempt runs one recording and swallows whatever it returns.
func (h *TrackingHandler) attempt(c *fiber.Ctx, kind string, hit service.TrackingHit, record func(context.Context) error) {
	if h.recorder == nil || !service.IsTrackingID(hit.TrackingID) {
		return
	}

	ctx := requestContext(c)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("tracking recorder panicked",
				zap.String("kind", kind),
				zap.String("tracking_id", hit.TrackingID),
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	if err := record(ctx); err != nil {
		h.logger.Error("failed to record tracking event",
			zap.String("kind", kind),
			zap.String("tracking_id", hit.TrackingID),
			zap.String("ip", hit.IP),
			zap.Error(err))
	}
}
