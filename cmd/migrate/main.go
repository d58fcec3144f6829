package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/jewelbid-backend/internal/bootstrap"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations embedded in the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch files, so they run without config.
	switch *cmd {
	case "create":
		if err := migrate.Create(*dir, *name); err != nil {
			fail("create", err)
		}
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("validate", err)
		}
		fmt.Println("migrations valid")
		return
	}

	cfg, logg, err := bootstrap.Load("migrate")
	if err != nil {
		fail("config", err)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "extract sql.DB", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	case "version":
		if *version == "" {
			fail("version", fmt.Errorf("-version is required"))
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "migrate %s: %v\n", step, err)
	os.Exit(1)
}
