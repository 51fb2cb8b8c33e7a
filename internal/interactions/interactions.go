package interactions

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"mizan/internal/users"
)

// Source page tags. The source page identifies which UI surface produced an
// interaction.
const (
	SourceChat    = "chat"
	SourceContact = "contact"
)

// MaxAnswerLength caps stored answer text. Callers truncate answers to this
// length before tracking; the SDK applies the same limit client-side.
const MaxAnswerLength = 5000

// Interaction is a completed question/answer exchange. Rows are insert-only.
type Interaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"index;not null" json:"session_id"`
	UserID       *uint     `json:"user_id"`
	QuestionText string    `gorm:"not null" json:"question_text"`
	AnswerText   *string   `json:"answer_text"`
	SourcePage   string    `gorm:"index;not null" json:"source_page"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
}

// RecordInteractionInput defines the input required to record an interaction.
type RecordInteractionInput struct {
	SessionID    string
	UserID       *uint
	QuestionText string
	AnswerText   *string
	SourcePage   string
}

// CapAnswer truncates an answer to MaxAnswerLength runes.
func CapAnswer(answer string) string {
	runes := []rune(answer)
	if len(runes) <= MaxAnswerLength {
		return answer
	}
	return string(runes[:MaxAnswerLength])
}

// RecordInteraction validates and inserts an interaction row. When a user id
// is present the user's last_seen_at is advanced before the call returns;
// the two writes are separate statements, matching the single-row write
// model of the rest of the system.
func RecordInteraction(db *gorm.DB, logger *slog.Logger, input RecordInteractionInput) (uint, error) {
	if input.SessionID == "" {
		return 0, errors.New("sessionId is required")
	}
	if input.QuestionText == "" {
		return 0, errors.New("questionText is required")
	}
	if input.SourcePage == "" {
		return 0, errors.New("sourcePage is required")
	}

	interaction := Interaction{
		SessionID:    input.SessionID,
		UserID:       input.UserID,
		QuestionText: input.QuestionText,
		AnswerText:   input.AnswerText,
		SourcePage:   input.SourcePage,
		CreatedAt:    time.Now().UTC(),
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&interaction).Error
	})
	if err != nil {
		logger.Error("Failed to record interaction", slog.Any("error", err))
		return 0, err
	}

	if input.UserID != nil {
		if err := users.TouchLastSeen(db, logger, *input.UserID); err != nil {
			logger.Error("Failed to touch user last_seen_at",
				slog.Uint64("user_id", uint64(*input.UserID)),
				slog.Any("error", err))
			return 0, err
		}
	}

	return interaction.ID, nil
}
