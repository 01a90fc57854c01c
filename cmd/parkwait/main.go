package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/lox/parkwait/internal/store"
)

// Globals are shared by every command.
type Globals struct {
	DB             string        `name:"db" env:"DB_URL" default:"data/parkwait.db" help:"SQLite path or PostgreSQL URL."`
	TZ             string        `name:"tz" env:"PARK_TZ" default:"America/New_York" help:"Park time zone used for day and hour matching."`
	ExcludedTypes  []string      `name:"excluded-types" env:"EXCLUDED_TYPES" default:"Restaurant,Show" help:"Attraction types that are not rides."`
	ConnectTimeout time.Duration `name:"connect-timeout" env:"DB_CONNECT_TIMEOUT" default:"30s" help:"How long to retry the initial database ping."`
}

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the web planner."`
	Assess  AssessCmd  `cmd:"" help:"Print a wait-time assessment for attractions."`
	Migrate MigrateCmd `cmd:"" help:"Create the SQLite schema."`
	Seed    SeedCmd    `cmd:"" help:"Load a JSON fixture into the database."`
}

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("parkwait"),
		kong.Description("Theme park wait times compared with their historical average."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(&cli.Globals); err != nil {
		log.Fatal(err)
	}
}

// openStore connects to the configured database and wraps it in a Store.
func (g *Globals) openStore(ctx context.Context) (*store.Store, *sql.DB, error) {
	loc, err := time.LoadLocation(g.TZ)
	if err != nil {
		return nil, nil, fmt.Errorf("load time zone %q: %w", g.TZ, err)
	}

	opts := store.DefaultOpenOptions
	opts.ConnectTimeout = g.ConnectTimeout
	db, dialect, err := store.Open(ctx, g.DB, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("store: connected (%s, tz %s)", dialect, loc)

	st := store.New(db, loc,
		store.WithDialect(dialect),
		store.WithExcludedTypes(g.ExcludedTypes),
	)
	return st, db, nil
}
