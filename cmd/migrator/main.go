package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/lostmyescape/opsconsole/internal/config"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

func main() {
	var dsn, migrationsPath, migrationsTable string
	var down bool

	flag.StringVar(&dsn, "dsn", "", "postgres URL, defaults to the storage section of CONFIG_PATH")
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to migrations")
	flag.StringVar(&migrationsTable, "migrations-table", "migrations", "name of migrations table")
	flag.BoolVar(&down, "down", false, "roll back every migration")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if dsn == "" {
		dsn = config.MustLoad().Storage.URL()
	}

	var dbURL string
	if strings.Contains(dsn, "?") {
		dbURL = dsn + "&x-migrations-table=" + migrationsTable
	} else {
		dbURL = dsn + "?x-migrations-table=" + migrationsTable
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		log.Error("failed to init migrations", sl.Err(err))
		os.Exit(1)
	}

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return
		}
		log.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	log.Info("migrations applied", slog.String("path", migrationsPath), slog.Bool("down", down))
}
