package v1

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/interactions"
	"mizan/internal/pkg/geoip"
	"mizan/internal/settings"
	"mizan/internal/visits"
)

const errInvalidRequest = "Invalid request"

type TrackVisitParams struct {
	SessionID string `json:"sessionId"`
	UserID    *uint  `json:"userId"`
	Path      string `json:"path"`
}

type TrackInteractionParams struct {
	SessionID    string  `json:"sessionId"`
	UserID       *uint   `json:"userId"`
	QuestionText string  `json:"questionText"`
	AnswerText   *string `json:"answerText"`
	SourcePage   string  `json:"sourcePage"`
}

// TrackVisitHandler records a page navigation reported by the frontend SDK.
func TrackVisitHandler(ctx *cartridge.Context) error {
	var params TrackVisitParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx.Ctx, errInvalidRequest)
	}

	if params.SessionID == "" {
		return badRequest(ctx.Ctx, "sessionId is required")
	}
	if params.Path == "" {
		return badRequest(ctx.Ctx, "path is required")
	}

	clientIP := getClientIP(ctx.Ctx)
	if dropTrackingFor(ctx, clientIP) {
		return ctx.JSON(fiber.Map{"success": true, "id": 0})
	}

	id, err := visits.RecordVisit(ctx.DBManager.GetConnection(), ctx.Logger, visits.RecordVisitInput{
		SessionID: params.SessionID,
		UserID:    params.UserID,
		Path:      params.Path,
		Country:   geoip.CountryCode(clientIP),
	})
	if err != nil {
		ctx.Logger.Error("Failed to record visit", slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to record visit")
	}

	return ctx.JSON(fiber.Map{"success": true, "id": id})
}

// TrackInteractionHandler records a completed chat exchange.
func TrackInteractionHandler(ctx *cartridge.Context) error {
	var params TrackInteractionParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx.Ctx, errInvalidRequest)
	}

	if params.SessionID == "" {
		return badRequest(ctx.Ctx, "sessionId is required")
	}
	if params.QuestionText == "" {
		return badRequest(ctx.Ctx, "questionText is required")
	}
	if params.SourcePage == "" {
		return badRequest(ctx.Ctx, "sourcePage is required")
	}

	if dropTrackingFor(ctx, getClientIP(ctx.Ctx)) {
		return ctx.JSON(fiber.Map{"success": true, "id": 0})
	}

	answer := params.AnswerText
	if answer != nil {
		capped := interactions.CapAnswer(*answer)
		answer = &capped
	}

	id, err := interactions.RecordInteraction(ctx.DBManager.GetConnection(), ctx.Logger, interactions.RecordInteractionInput{
		SessionID:    params.SessionID,
		UserID:       params.UserID,
		QuestionText: params.QuestionText,
		AnswerText:   answer,
		SourcePage:   params.SourcePage,
	})
	if err != nil {
		ctx.Logger.Error("Failed to record interaction", slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to record interaction")
	}

	return ctx.JSON(fiber.Map{"success": true, "id": id})
}

// dropTrackingFor reports whether tracking from this IP is excluded. Excluded
// clients still get a success response so the SDK stays silent.
func dropTrackingFor(ctx *cartridge.Context, ip string) bool {
	excluded, err := settings.IsIPExcluded(ip)
	if err != nil {
		ctx.Logger.Warn("Failed to check excluded IPs", slog.Any("error", err))
		return false
	}
	if excluded {
		ctx.Logger.Debug("Dropping tracking call from excluded IP", slog.String("ip", ip))
	}
	return excluded
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func internalError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": message})
}
