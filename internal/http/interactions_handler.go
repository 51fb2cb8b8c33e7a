package http

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/interactions"
)

// InteractionsIndexAction returns one page of interactions, newest first.
// Non-numeric or non-positive page parameters fall back to the defaults.
func InteractionsIndexAction(ctx *cartridge.Context) error {
	page, err := strconv.Atoi(ctx.Query("page", strconv.Itoa(interactions.DefaultPage)))
	if err != nil {
		page = interactions.DefaultPage
	}
	pageSize, err := strconv.Atoi(ctx.Query("pageSize", strconv.Itoa(interactions.DefaultPageSize)))
	if err != nil {
		pageSize = interactions.DefaultPageSize
	}

	result, err := interactions.GetPage(ctx.DBManager.GetConnection(), page, pageSize)
	if err != nil {
		ctx.Logger.Error("Failed to fetch interactions", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch interactions",
		})
	}

	return ctx.JSON(fiber.Map{
		"interactions": result.Interactions,
		"total":        result.Total,
		"page":         result.Page,
		"pageSize":     result.PageSize,
		"totalPages":   result.TotalPages,
	})
}
