package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lox/parkwait/internal/api"
	"github.com/lox/parkwait/internal/assess"
	"github.com/lox/parkwait/internal/session"
	"github.com/lox/parkwait/internal/store"
)

type ServeCmd struct {
	Listen         string        `name:"listen" env:"LISTEN_ADDR" default:":8080" help:"HTTP listen address."`
	SessionBackend string        `name:"session-backend" env:"SESSION_BACKEND" enum:"memory,redis" default:"memory" help:"Where wizard sessions are kept (memory or redis)."`
	RedisAddr      string        `name:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `name:"redis-password" env:"REDIS_PASSWORD"`
	RedisDB        int           `name:"redis-db" env:"REDIS_DB" default:"0"`
	RedisTLS       bool          `name:"redis-tls" env:"REDIS_TLS"`
	SessionTTL     time.Duration `name:"session-ttl" env:"SESSION_TTL" default:"24h" help:"Idle lifetime of a wizard session."`
	SecureCookies  bool          `name:"secure-cookies" env:"SECURE_COOKIES" help:"Mark the session cookie Secure."`
	BatchHistory   bool          `name:"batch-history" env:"BATCH_HISTORY" help:"Fetch historical windows with one query per request."`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	st, db, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if st.Dialect() == store.SQLite {
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Println("database migrated")
	}

	sessions, closeSessions, err := c.sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	server := api.NewServer(st, sessions, api.Options{
		Addr:          c.Listen,
		BatchHistory:  c.BatchHistory,
		SessionTTL:    c.SessionTTL,
		SecureCookies: c.SecureCookies,
	})
	return server.Run(ctx)
}

func (c *ServeCmd) sessionStore(ctx context.Context) (session.Store, func(), error) {
	if c.SessionBackend != "redis" {
		log.Printf("session: using in-memory store (ttl %s)", c.SessionTTL)
		return session.NewMemoryStore(c.SessionTTL), func() {}, nil
	}

	client, err := session.NewRedisClient(ctx, session.RedisOptions{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		TLS:      c.RedisTLS,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("session: using redis at %s", c.RedisAddr)
	return session.NewRedisStore(client, "", c.SessionTTL), func() { client.Close() }, nil
}

type AssessCmd struct {
	Attractions  string `name:"attractions" required:"" help:"Comma-separated attraction ids."`
	BatchHistory bool   `name:"batch-history" env:"BATCH_HISTORY" help:"Fetch historical windows with one query."`
	JSON         bool   `name:"json" help:"Print the report as JSON."`
}

func (c *AssessCmd) Run(ctx context.Context, g *Globals) error {
	ids, skipped := session.ParseIDs(c.Attractions)
	if len(skipped) > 0 {
		log.Printf("assess: ignoring malformed ids: %s", strings.Join(skipped, ", "))
	}
	if len(ids) == 0 {
		return fmt.Errorf("no valid attraction ids in %q", c.Attractions)
	}
	if len(ids) > session.MaxAttractions {
		return fmt.Errorf("%d attraction ids given, at most %d allowed", len(ids), session.MaxAttractions)
	}

	st, db, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := assess.NewEngine(st, assess.WithBatchHistory(c.BatchHistory)).Assess(ctx, ids)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(report)
	}
	return printReport(report, st.Location())
}

func printReport(report *assess.Report, loc *time.Location) error {
	if report.NoData() {
		fmt.Println("No wait times available for selected attractions")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRACTION\tCURRENT\tAVERAGE\tPERCENT\tASSESSMENT\tUPDATED")
	for _, r := range report.Results {
		current := r.Status
		if r.ShowWait() {
			current = r.WaitText()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, current, r.AverageText(), r.PercentText(), r.Label,
			r.LastUpdated.In(loc).Format("Mon 15:04"))
	}
	if len(report.Degraded) > 0 {
		fmt.Fprintf(tw, "\nno baseline (history query failed): %s\n", session.FormatIDs(report.Degraded))
	}
	return tw.Flush()
}

func printJSON(report *assess.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	st, db, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	log.Printf("database migrated to version %d", version)
	return nil
}

type SeedCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON fixture to load."`
}

func (c *SeedCmd) Run(ctx context.Context, g *Globals) error {
	st, db, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if st.Dialect() == store.SQLite {
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := st.LoadFixture(ctx, f)
	if err != nil {
		return fmt.Errorf("seed %s: %w", c.File, err)
	}
	log.Printf("seeded %d wait observations from %s", n, c.File)
	return nil
}
