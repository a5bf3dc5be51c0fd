package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/logging"
	"expensetracker/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo user with a budget, categories and expenses",
	Long: `Creates (or reuses) a user, sets its budget and records a set of
categorized expenses through the ledger. Database settings come from the
same environment variables as the server.

The fixture is built in unless --fixture names a JSON file or an http(s) URL.`,
	RunE: runSeed,
}

func init() {
	rootCmd.Flags().StringP("username", "u", "demo", "username to seed")
	rootCmd.Flags().StringP("password", "p", "demo-password", "password for a newly created user")
	rootCmd.Flags().StringP("fixture", "f", "", "fixture JSON file or URL (default: built-in demo data)")
	rootCmd.Flags().Bool("reset", false, "drop all tables before seeding")

	_ = viper.BindPFlag("seed.username", rootCmd.Flags().Lookup("username"))
	_ = viper.BindPFlag("seed.password", rootCmd.Flags().Lookup("password"))
	_ = viper.BindPFlag("seed.fixture", rootCmd.Flags().Lookup("fixture"))
	_ = viper.BindPFlag("seed.reset", rootCmd.Flags().Lookup("reset"))

	// SEED_USERNAME, SEED_PASSWORD and SEED_FIXTURE override flag defaults
	_ = viper.BindEnv("seed.username", "SEED_USERNAME")
	_ = viper.BindEnv("seed.password", "SEED_PASSWORD")
	_ = viper.BindEnv("seed.fixture", "SEED_FIXTURE")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Connected to database")

	if viper.GetBool("seed.reset") || cfg.ResetDB {
		log.Warn("Dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed")

	fixture, err := loadFixture(ctx, viper.GetString("seed.fixture"))
	if err != nil {
		return err
	}

	username := viper.GetString("seed.username")
	result, err := newSeeder(repository.NewStore(gormDB), cfg.SessionSecret, log).
		Seed(ctx, username, viper.GetString("seed.password"), fixture)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"username":     username,
		"user_created": result.UserCreated,
		"categories":   result.Categories,
		"expenses":     result.Expenses,
		"remaining":    result.Remaining.String(),
	}).Info("Seed completed successfully")
	return nil
}
