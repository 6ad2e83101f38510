package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tourhub/internal/bookings"
	"tourhub/internal/cancellation"
	"tourhub/internal/disputes"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/config"
	"tourhub/internal/shared/constants"
	"tourhub/internal/shared/database"
	"tourhub/internal/shared/idempotency"
	"tourhub/internal/users"
	"tourhub/pkg/cache"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

// Fixed identities so seeded tokens stay valid across runs.
var (
	adminID    = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	customerID = uuid.MustParse("00000000-0000-4000-8000-000000000002")
	guideID    = uuid.MustParse("00000000-0000-4000-8000-000000000003")
)

func main() {
	fmt.Println("Starting tourhub database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg,
		&bookings.Booking{},
		&policies.CancellationPolicy{},
		&policies.CancellationRule{},
		&cancellation.CancellationRequest{},
		&refunds.RefundRecord{},
		&disputes.DisputeCase{},
		&disputes.Evidence{},
		&disputes.Communication{},
		&idempotency.Record{},
	)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	fmt.Println("\nCleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\nSeeding completed. Tokens for manual testing:")
	for _, actor := range []users.Actor{
		{ID: adminID, Role: users.RoleAdmin},
		{ID: customerID, Role: users.RoleCustomer},
		{ID: guideID, Role: users.RoleGuide},
	} {
		token, err := seeder.AccessToken(actor)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("  %-8s %s\n", actor.Role, token)
	}
}

// CleanDatabase truncates every engine table, children first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"dispute_communications",
		"dispute_evidence",
		"dispute_cases",
		"refund_records",
		"cancellation_requests",
		"idempotency_records",
		"bookings",
		"cancellation_rules",
		"cancellation_policies",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds the default policy and a spread of bookings
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	policy, err := s.SeedDefaultPolicy()
	if err != nil {
		return fmt.Errorf("failed to seed cancellation policy: %w", err)
	}
	if err := s.SeedBookings(policy.ID); err != nil {
		return fmt.Errorf("failed to seed bookings: %w", err)
	}

	policyCache := cache.NewService(s.db.GetRedis(), nil)
	if err := policyCache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_POLICIES_ALL); err != nil {
		log.Printf("Warning: failed to clear policy cache: %v", err)
	}
	return nil
}

// SeedDefaultPolicy creates the tenant's standard four-tier policy
func (s *Seeder) SeedDefaultPolicy() (*policies.CancellationPolicy, error) {
	fmt.Println("  Seeding default cancellation policy...")

	rule := func(position, hours int, pct, fee int64, desc string) policies.CancellationRule {
		return policies.CancellationRule{
			ID:               uuid.New(),
			Position:         position,
			HoursBeforeStart: hours,
			RefundPercentage: decimal.NewFromInt(pct),
			ProcessingFee:    decimal.NewFromInt(fee),
			Description:      desc,
		}
	}

	policy := &policies.CancellationPolicy{
		ID:          uuid.New(),
		TenantID:    s.cfg.Engine.DefaultTenant,
		Name:        "Standard",
		Description: "Full refund three days out, tapering to nothing on the day",
		IsDefault:   true,
		Version:     1,
		Rules: []policies.CancellationRule{
			rule(0, 72, 100, 0, "72 hours or more"),
			rule(1, 48, 75, 50, "48 to 72 hours"),
			rule(2, 24, 50, 100, "24 to 48 hours"),
			rule(3, 0, 0, 0, "less than 24 hours"),
		},
	}
	if err := s.db.PostgreSQL.Create(policy).Error; err != nil {
		return nil, err
	}
	fmt.Printf("    Created policy %s (%d rules)\n", policy.ID, len(policy.Rules))
	return policy, nil
}

// SeedBookings creates confirmed bookings in each refund tier
func (s *Seeder) SeedBookings(policyID uuid.UUID) error {
	fmt.Println("  Seeding bookings...")

	now := time.Now().UTC()
	samples := []struct {
		ref    string
		tour   string
		hours  int
		amount string
		policy *uuid.UUID
	}{
		{"TH-1001", "Old Town Walking Tour", 80, "1848.00", &policyID},
		{"TH-1002", "Sunset Kayak Trip", 50, "1848.00", nil},
		{"TH-1003", "Street Food Crawl", 30, "240.00", nil},
		{"TH-1004", "Mountain Day Hike", 10, "560.00", nil},
		{"TH-1005", "Museum Highlights", -5, "90.00", nil},
	}

	for _, sample := range samples {
		booking := bookings.Booking{
			ID:              uuid.New(),
			TenantID:        s.cfg.Engine.DefaultTenant,
			BookingRef:      sample.ref,
			CustomerID:      customerID,
			GuideID:         guideID,
			TourName:        sample.tour,
			ServiceDateTime: now.Add(time.Duration(sample.hours) * time.Hour),
			TotalAmount:     decimal.RequireFromString(sample.amount),
			Currency:        "USD",
			PolicyID:        sample.policy,
			Status:          bookings.StatusConfirmed,
		}
		if err := s.db.PostgreSQL.Create(&booking).Error; err != nil {
			return fmt.Errorf("failed to create booking %s: %w", sample.ref, err)
		}
		fmt.Printf("    Created booking %s %s (%+dh)\n", booking.BookingRef, booking.ID, sample.hours)
	}
	return nil
}

// AccessToken signs a short-lived access token the API accepts
func (s *Seeder) AccessToken(actor users.Actor) (string, error) {
	claims := jwt.MapClaims{
		"user_id": actor.ID.String(),
		"role":    string(actor.Role),
		"type":    "access",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}
