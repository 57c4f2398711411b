package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/schoolbus-hub/config"
	repo "github.com/Temutjin2k/schoolbus-hub/internal/adapter/postgres"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/internal/service/auth"
	"github.com/Temutjin2k/schoolbus-hub/pkg/postgres"
	"github.com/Temutjin2k/schoolbus-hub/pkg/trm"
)

// Demo fleet: one admin, one driver and two parents with three children on schedule 1.
const (
	demoScheduleID = 1
	demoAdminID    = 1
	demoDriverID   = 2
	demoParentA    = 3
	demoParentB    = 4
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed demo tokens")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if err := seedDemoSchedule(ctx, trm.New(client.Pool), client); err != nil {
		log.Fatalf("seed: %v", err)
	}

	if err := printTokens(auth.NewTokenVerifier(cfg.Auth.JWTSecret)); err != nil {
		log.Fatalf("tokens: %v", err)
	}
}

func seedDemoSchedule(ctx context.Context, tx *trm.Manager, db *postgres.PostgreDB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	students := []struct {
		ID       int64
		Name     string
		ParentID int64
	}{
		{ID: 1, Name: "Aru", ParentID: demoParentA},
		{ID: 2, Name: "Dana", ParentID: demoParentA},
		{ID: 3, Name: "Timur", ParentID: demoParentB},
	}

	return tx.Do(ctx, func(ctx context.Context) error {
		q := repo.TxorDB(ctx, db.Pool)

		if _, err := q.Exec(ctx, `
			INSERT INTO schedules (id, driver_id, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, actual_start_time = NULL, actual_end_time = NULL;`,
			demoScheduleID, demoDriverID, types.StatusScheduled,
		); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}

		for _, s := range students {
			if _, err := q.Exec(ctx, `
				INSERT INTO students (id, name, parent_id) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO NOTHING;`,
				s.ID, s.Name, s.ParentID,
			); err != nil {
				return fmt.Errorf("insert student %s: %w", s.Name, err)
			}

			if _, err := q.Exec(ctx, `
				INSERT INTO schedule_students (schedule_id, student_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING;`,
				demoScheduleID, s.ID,
			); err != nil {
				return fmt.Errorf("link student %s: %w", s.Name, err)
			}
		}

		log.Printf("seed: schedule %d reset with %d students", demoScheduleID, len(students))
		return nil
	})
}

func printTokens(signer *auth.TokenVerifier) error {
	identities := []models.Identity{
		{UserID: demoAdminID, Role: types.RoleAdmin, Name: "Demo Admin"},
		{UserID: demoDriverID, Role: types.RoleDriver, Name: "Demo Driver"},
		{UserID: demoParentA, Role: types.RoleParent, Name: "Parent A"},
		{UserID: demoParentB, Role: types.RoleParent, Name: "Parent B"},
	}

	now := time.Now()
	for _, id := range identities {
		token, err := signer.Sign(auth.NewAccessClaims(id, now, *tokenTTL))
		if err != nil {
			return err
		}
		fmt.Printf("%-7s user_id=%d\n  %s\n", id.Role, id.UserID, token)
	}
	return nil
}
