package http

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/reporting"
)

// SummaryIndexAction returns the dashboard headline counts.
func SummaryIndexAction(ctx *cartridge.Context) error {
	summary, err := reporting.GetSummary(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to compute summary", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute summary",
		})
	}

	return ctx.JSON(summary)
}
