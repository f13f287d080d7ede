package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"laundry-booking-backend/internal/db"
	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/mw"
	"laundry-booking-backend/internal/parse"
	"laundry-booking-backend/internal/store"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			return nil
		},
	}
}

// fleetFile is the seed file format.
type fleetFile struct {
	Machines []struct {
		Label    string `yaml:"label"`
		Location string `yaml:"location"`
	} `yaml:"machines"`
}

// loadFleet reads a seed file into machines keyed by their parsed label.
func loadFleet(path string) ([]model.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fleetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Machines))
	machines := make([]model.Machine, 0, len(f.Machines))
	for _, entry := range f.Machines {
		label, err := parse.ParseLabel(entry.Label)
		if err != nil {
			return nil, err
		}
		if seen[label.ID()] {
			return nil, fmt.Errorf("duplicate machine %q in %s", entry.Label, path)
		}
		seen[label.ID()] = true
		machines = append(machines, model.Machine{
			ID:        label.ID(),
			Type:      label.Type,
			Index:     label.Index,
			Location:  entry.Location,
			Available: true,
		})
	}
	return machines, nil
}

func newSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or update machines from a fleet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			machines, err := loadFleet(file)
			if err != nil {
				return err
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := store.NewGormStore(gormDB).UpsertMachines(cmd.Context(), machines); err != nil {
				return err
			}
			log.Info("machines seeded", "count", len(machines), "file", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fleet YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue sessions and free machines held by stale sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			expired, err := a.engine.ExpireDue(ctx)
			if err != nil {
				return err
			}
			freed, err := a.engine.Reconcile(ctx)
			if err != nil {
				return err
			}
			log.Info("sweep finished", "expired", expired, "freed", freed)
			return nil
		},
	}
}

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			tok, err := mw.IssueToken([]byte(cfg.Auth.JWTSecret), userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the sub claim")
	cmd.Flags().StringVar(&role, "role", "", "optional role claim, e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
