package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"quizmaster-backend/internal/config"
	"quizmaster-backend/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "Manage the quiz question bank",
	Long: `quizctl seeds the question bank from JSON, fills it with AI-generated
questions and prints a player's performance summary.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// connect loads tooling config and opens a pool with migrations applied.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg := config.LoadTooling()
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(ctx, pool, migrationFS(cfg)); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return cfg, pool, nil
}
