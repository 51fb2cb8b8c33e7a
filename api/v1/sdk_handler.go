package v1

import (
	"bytes"
	_ "embed"
	"text/template"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

//go:embed sdk.js
var sdkTemplate string

// GetSDKAction serves the tracking SDK with the instance base URL baked in.
func GetSDKAction(ctx *cartridge.Context) error {
	tmpl, err := template.New("./api/v1/sdk.js").Parse(sdkTemplate)
	if err != nil {
		ctx.Logger.Error("Failed to parse SDK template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	var buf bytes.Buffer
	data := map[string]string{
		"BaseURL": ctx.BaseURL(),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		ctx.Logger.Error("Failed to render SDK template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	// Honor If-None-Match so returning visitors skip the download
	ifNoneMatch := ctx.Get("If-None-Match")
	if ifNoneMatch == etag {
		return ctx.Status(fiber.StatusNotModified).Send(nil)
	}

	ctx.Set("Content-Type", "application/javascript")
	ctx.Set("Cache-Control", "public, max-age=3600") // 1 hour
	ctx.Set("ETag", etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return ctx.Send(content)
}
