// migrate aplica o revierte las migraciones de /migrations contra la base configurada (DATABASE_URL o DB_*).
//
// Uso:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
//	go run ./cmd/migrate steps -1
//	go run ./cmd/migrate force 1
//	go run ./cmd/migrate version
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jhoicas/spm-api/internal/infrastructure/migration"
	"github.com/jhoicas/spm-api/pkg/config"
	"github.com/jhoicas/spm-api/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "uso: migrate up | down | steps N | force VERSION | version")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	m, err := migration.New(cfg.DB.ConnectionString(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("migrador")
	}
	defer m.Close()

	if err := run(m, flag.Args()); err != nil {
		log.Error().Err(err).Str("cmd", flag.Arg(0)).Msg("migración fallida")
		m.Close()
		os.Exit(1)
	}
}

func run(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requiere un número", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%s: número inválido %q", args[0], args[1])
		}
		if args[0] == "steps" {
			return m.Steps(n)
		}
		return m.Force(n)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("comando desconocido %q", args[0])
	}
}
