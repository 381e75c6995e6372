package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"drainwatch/backend/internal/analysis"
	"drainwatch/backend/internal/config"
	"drainwatch/backend/internal/logger"
	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	storageSvc := storage.NewStorageService(db) // No redis needed for admin CLI

	command := os.Args[1]

	switch command {
	case "promote":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin promote <email> <citizen|staff|admin>")
			os.Exit(1)
		}
		email, role := os.Args[2], models.Role(os.Args[3])
		user, err := promote(ctx, storageSvc, email, role)
		if err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("error promoting user")
		}
		fmt.Printf("User %s is now %s.\n", user.Email, user.Role)
	case "metrics":
		m, err := metrics(ctx, storageSvc)
		if err != nil {
			log.Fatal().Err(err).Msg("error computing metrics")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			log.Fatal().Err(err).Msg("error writing metrics")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  promote <email> <citizen|staff|admin>")
	fmt.Println("  metrics")
}

func promote(ctx context.Context, s storage.Storage, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if !role.CanTriage() {
		user, err := s.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		// Assignees must stay staff or admin.
		if user.Role.CanTriage() {
			assigned, err := s.ListComplaints(ctx, storage.ComplaintScope{AssignedTo: user.ID})
			if err != nil {
				return nil, err
			}
			if len(assigned) > 0 {
				return nil, fmt.Errorf("%s is assigned to %d complaints and cannot be demoted to %s", email, len(assigned), role)
			}
		}
	}
	return s.SetUserRole(ctx, email, role)
}

func metrics(ctx context.Context, s storage.Storage) (analysis.Metrics, error) {
	complaints, err := s.ListComplaints(ctx, storage.ComplaintScope{All: true})
	if err != nil {
		return analysis.Metrics{}, err
	}
	return analysis.Summarize(complaints), nil
}
