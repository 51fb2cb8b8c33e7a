package v1

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/usage"
)

type TrackUsageParams struct {
	UserID       string  `json:"userId"`
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	IsRegistered bool    `json:"isRegistered"`
}

// TrackUsageHandler is the legacy chat usage counter endpoint. Each call
// bumps the per-user counter by one.
func TrackUsageHandler(ctx *cartridge.Context) error {
	var params TrackUsageParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx.Ctx, errInvalidRequest)
	}

	if params.UserID == "" {
		return badRequest(ctx.Ctx, "userId is required")
	}

	result, err := usage.Track(ctx.DBManager.GetConnection(), ctx.Logger, usage.TrackInput{
		UserID:       params.UserID,
		Username:     params.Username,
		Email:        params.Email,
		IsRegistered: params.IsRegistered,
	})
	if err != nil {
		ctx.Logger.Error("Failed to track usage",
			slog.String("userId", params.UserID),
			slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to track usage")
	}

	message := "Usage updated"
	if result.Created {
		message = "Usage created"
	}

	return ctx.JSON(fiber.Map{
		"success":    true,
		"message":    message,
		"usageCount": result.UsageCount,
	})
}

// GetUsageStatsHandler returns the legacy usage statistics block.
func GetUsageStatsHandler(ctx *cartridge.Context) error {
	stats, err := usage.GetStats(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to compute usage stats", slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to compute usage stats")
	}
	return ctx.JSON(stats)
}

// GetUsageUsersHandler returns every usage record, most recently used first.
func GetUsageUsersHandler(ctx *cartridge.Context) error {
	list, err := usage.GetAllUsers(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to list usage users", slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to list usage users")
	}
	return ctx.JSON(list)
}
