package v1

import (
	"log/slog"

	"github.com/karloscodes/cartridge"

	"mizan/internal/users"
)

type UpsertUserParams struct {
	Email        string  `json:"email"`
	Name         *string `json:"name"`
	IsRegistered *bool   `json:"isRegistered"`
}

// UpsertUserHandler creates or updates a user record by email and returns
// the full resulting record.
func UpsertUserHandler(ctx *cartridge.Context) error {
	var params UpsertUserParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx.Ctx, errInvalidRequest)
	}

	if params.Email == "" {
		return badRequest(ctx.Ctx, "email is required")
	}

	user, err := users.Upsert(ctx.DBManager.GetConnection(), ctx.Logger, users.UpsertInput{
		Email:        params.Email,
		Name:         params.Name,
		IsRegistered: params.IsRegistered,
	})
	if err != nil {
		ctx.Logger.Error("Failed to upsert user",
			slog.String("email", params.Email),
			slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to upsert user")
	}

	return ctx.JSON(user)
}
