package v1

import (
	"net/http"
	"strconv"
	"sync"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"mizan/internal/config"
	"mizan/internal/interactions"
	"mizan/internal/relay"
)

type ChatMessageParams struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    *uint  `json:"userId"`
}

var (
	relayMu     sync.Mutex
	relayClient *relay.Client
)

// getRelayClient returns the shared relay client, rebuilding it when the
// configured webhook URL has changed since the last call.
func getRelayClient(logger *slog.Logger) *relay.Client {
	cfg := config.GetConfig()

	relayMu.Lock()
	defer relayMu.Unlock()
	if relayClient == nil || relayClient.WebhookURL() != cfg.ChatWebhookURL {
		relayClient = relay.NewClient(cfg.ChatWebhookURL, cfg.GetChatWebhookTimeout(), logger)
	}
	return relayClient
}

// ChatMessageHandler forwards a chat message to the automation webhook and
// returns the assistant reply. The exchange is recorded as an interaction;
// a tracking failure never blocks the reply.
func ChatMessageHandler(ctx *cartridge.Context) error {
	var params ChatMessageParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx.Ctx, errInvalidRequest)
	}

	if params.Message == "" {
		return badRequest(ctx.Ctx, "message is required")
	}
	if params.SessionID == "" {
		return badRequest(ctx.Ctx, "sessionId is required")
	}

	client := getRelayClient(ctx.Logger)
	if !client.Configured() {
		return ctx.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Chat service is not configured",
		})
	}

	msg := relay.Message{
		Message:   params.Message,
		SessionID: params.SessionID,
	}
	if params.UserID != nil {
		msg.UserID = strconv.FormatUint(uint64(*params.UserID), 10)
	}

	reply, err := client.Send(ctx.UserContext(), msg)
	if err != nil {
		ctx.Logger.Error("Chat relay failed", slog.Any("error", err))
		return internalError(ctx.Ctx, "Failed to relay chat message")
	}

	answer := interactions.CapAnswer(reply)
	_, trackErr := interactions.RecordInteraction(ctx.DBManager.GetConnection(), ctx.Logger, interactions.RecordInteractionInput{
		SessionID:    params.SessionID,
		UserID:       params.UserID,
		QuestionText: params.Message,
		AnswerText:   &answer,
		SourcePage:   interactions.SourceChat,
	})
	if trackErr != nil {
		ctx.Logger.Error("Failed to record chat interaction", slog.Any("error", trackErr))
	}

	return ctx.JSON(fiber.Map{"reply": reply})
}
