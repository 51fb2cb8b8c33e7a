package http

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/reporting"
)

const defaultCountryLimit = 20

// CountriesIndexAction returns the per-country visit breakdown.
func CountriesIndexAction(ctx *cartridge.Context) error {
	limit, err := strconv.Atoi(ctx.Query("limit", strconv.Itoa(defaultCountryLimit)))
	if err != nil || limit < 1 {
		limit = defaultCountryLimit
	}

	stats, err := reporting.GetCountryBreakdown(ctx.DBManager.GetConnection(), limit)
	if err != nil {
		ctx.Logger.Error("Failed to compute country breakdown", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute country breakdown",
		})
	}

	return ctx.JSON(fiber.Map{"countries": stats})
}
