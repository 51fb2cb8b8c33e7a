package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"mizan/internal/interactions"
	"mizan/internal/usage"
	"mizan/internal/users"
	"mizan/internal/visits"
)

// Seeder generates realistic demo tracking data: browsing sessions with
// visits, chat interactions, user records and legacy usage counters.
type Seeder struct {
	DBManager    cartridge.DBManager
	Logger       *slog.Logger
	SessionCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, sessionCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:    dbManager,
		Logger:       logger,
		SessionCount: sessionCount,
	}
}

var journeyTemplates = [][]string{
	{"/", "/services", "/contact"},
	{"/", "/chat"},
	{"/", "/services", "/services/family-law", "/chat"},
	{"/", "/about", "/services/real-estate", "/contact"},
	{"/chat"},
	{"/", "/services/labor-law", "/chat"},
	{"/", "/faq", "/chat"},
	{"/services", "/services/corporate", "/contact"},
}

var chatQuestions = []string{
	"What documents do I need to file a labor complaint?",
	"How long does a real estate transfer take?",
	"Can you explain the steps for registering a company?",
	"What are my rights as a tenant?",
	"How do I start a power of attorney request?",
	"What is the fee for a consultation?",
	"Do you handle family law cases?",
	"How can I appeal a traffic fine?",
}

var chatAnswers = []string{
	"You will need your contract, identification, and any written correspondence with your employer.",
	"A standard transfer usually completes within two to four weeks once the paperwork is in order.",
	"Company registration starts with reserving a trade name, then submitting the articles of association.",
	"Tenants are entitled to written notice and a grace period before any eviction proceeding.",
	"A power of attorney requires a notarized form; we can prepare the draft for you.",
	"Initial consultations are free of charge for the first thirty minutes.",
	"Yes, our family law team covers custody, divorce, and inheritance matters.",
	"Appeals must be filed within thirty days of the fine being issued.",
}

var seedUsers = []struct {
	Email      string
	Name       string
	Registered bool
}{
	{"amira.h@example.com", "Amira Haddad", true},
	{"omar.k@example.com", "Omar Khalil", true},
	{"lina.s@example.com", "Lina Saab", false},
	{"youssef.m@example.com", "Youssef Mansour", true},
	{"nadia.f@example.com", "Nadia Farah", false},
}

var seedCountries = []string{"SA", "AE", "EG", "JO", "KW", "unknown"}

// Run populates the database with demo data. It is additive; existing rows
// are left alone.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding demo data...", slog.Int("sessionCount", s.SessionCount))

	db := s.DBManager.GetConnection()

	userIDs := make([]*uint, 0, len(seedUsers)+1)
	userIDs = append(userIDs, nil) // anonymous sessions
	for _, su := range seedUsers {
		name := su.Name
		registered := su.Registered
		user, err := users.Upsert(db, s.Logger, users.UpsertInput{
			Email:        su.Email,
			Name:         &name,
			IsRegistered: &registered,
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", su.Email, err)
		}
		userIDs = append(userIDs, &user.ID)
	}

	now := time.Now().UTC()
	totalVisits := 0
	totalInteractions := 0

	for i := 0; i < s.SessionCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sessionID := fmt.Sprintf("session_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
		userID := userIDs[rand.IntN(len(userIDs))]
		journey := journeyTemplates[rand.IntN(len(journeyTemplates))]
		country := seedCountries[rand.IntN(len(seedCountries))]

		for _, path := range journey {
			_, err := visits.RecordVisit(db, s.Logger, visits.RecordVisitInput{
				SessionID: sessionID,
				UserID:    userID,
				Path:      path,
				Country:   country,
			})
			if err != nil {
				return fmt.Errorf("failed to seed visit: %w", err)
			}
			totalVisits++

			if path != "/chat" {
				continue
			}

			// A chat page visit produces one or two exchanges
			exchanges := 1 + rand.IntN(2)
			for e := 0; e < exchanges; e++ {
				q := rand.IntN(len(chatQuestions))
				answer := chatAnswers[q]
				_, err := interactions.RecordInteraction(db, s.Logger, interactions.RecordInteractionInput{
					SessionID:    sessionID,
					UserID:       userID,
					QuestionText: chatQuestions[q],
					AnswerText:   &answer,
					SourcePage:   interactions.SourceChat,
				})
				if err != nil {
					return fmt.Errorf("failed to seed interaction: %w", err)
				}
				totalInteractions++
			}
		}
	}

	if err := s.seedUsage(db); err != nil {
		return err
	}

	s.Logger.Info("Seeding completed",
		slog.Int("visits", totalVisits),
		slog.Int("interactions", totalInteractions),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedUsage populates the legacy chat_usage counters.
func (s *Seeder) seedUsage(db *gorm.DB) error {
	for _, su := range seedUsers {
		calls := 1 + rand.IntN(12)
		for c := 0; c < calls; c++ {
			name := su.Name
			email := su.Email
			_, err := usage.Track(db, s.Logger, usage.TrackInput{
				UserID:       "seed_" + su.Email,
				Username:     &name,
				Email:        &email,
				IsRegistered: su.Registered,
			})
			if err != nil {
				return fmt.Errorf("failed to seed usage for %s: %w", su.Email, err)
			}
		}
	}
	return nil
}
