package main

import (
	"io/fs"
	"os"

	"quizmaster-backend/internal/config"
	"quizmaster-backend/migrations"
)

func migrationFS(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}
