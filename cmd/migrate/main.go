package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/sportshub-backend/pkg/config"
	"github.com/angelmondragon/sportshub-backend/pkg/db"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/migrate"
)

// goose commands that run against the database as-is.
var dbCommands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"down":      true,
	"redo":      true,
	"status":    true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|up-by-one|down|redo|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for -cmd=create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only and need no config.
	switch *cmd {
	case "create":
		if *name == "" {
			fail(context.Background(), logg, "missing -name for create", nil)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(context.Background(), logg, "create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(context.Background(), logg, "migration validation failed", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(context.Background(), logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "connect database", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "open sql handle", err)
	}

	switch {
	case *cmd == "version":
		if *version == "" {
			fail(ctx, logg, "missing -version for version command", nil)
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	case dbCommands[*cmd]:
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	default:
		fail(ctx, logg, "unknown -cmd value: "+*cmd, nil)
	}
	if err != nil {
		fail(ctx, logg, "goose "+*cmd+" failed", err)
	}
	logg.Info(ctx, "migration command complete")
}

func fail(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
