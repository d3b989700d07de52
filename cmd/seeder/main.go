package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/hack-pad/hackpadfs"

	"github.com/poiesic/distillery"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage/badger"
)

var questions = []string{
	"How many orders shipped to Germany last week?",
	"Which table has the daily revenue numbers?",
	"Can you break revenue down by region instead of country?",
	"The query timed out, can you try with a date filter?",
	"Why does refunds_daily have gaps on Mondays?",
	"Show me the top ten customers by lifetime value.",
	"I only care about enterprise accounts, skip self-serve.",
	"Is churn computed from cancellations or from non-renewals?",
	"Compare this quarter's signups with the same quarter last year.",
	"Use fiscal weeks, our year starts in February.",
	"What does the status column in subscriptions mean?",
	"The numbers look off, are amounts stored in cents?",
	"Export the funnel conversion by channel as a table.",
	"Which warehouse handles returns for the EU?",
	"Average ticket resolution time by support tier, please.",
	"Exclude test accounts, they all have example.com emails.",
}

var catalog = []core.EntityDetail{
	{Source: "warehouse", Database: "sales", Schema: "public", Table: "orders", Condensed: "order_id, customer_id, country, shipped_at, total_cents", FullSchema: "CREATE TABLE orders (order_id bigint, customer_id bigint, country text, shipped_at timestamp, total_cents bigint)", Sample: "1001,42,DE,2025-05-02,129900"},
	{Source: "warehouse", Database: "sales", Schema: "public", Table: "customers", Condensed: "customer_id, email, segment, created_at", FullSchema: "CREATE TABLE customers (customer_id bigint, email text, segment text, created_at timestamp)", Sample: "42,ana@corp.io,enterprise,2023-01-09"},
	{Source: "warehouse", Database: "finance", Schema: "reporting", Table: "revenue_daily", Condensed: "day, region, revenue_cents", FullSchema: "CREATE TABLE revenue_daily (day date, region text, revenue_cents bigint)", Sample: "2025-05-01,EMEA,98122300"},
	{Source: "warehouse", Database: "finance", Schema: "reporting", Table: "refunds_daily", Condensed: "day, region, refunds_cents", FullSchema: "CREATE TABLE refunds_daily (day date, region text, refunds_cents bigint)", Sample: "2025-05-01,EMEA,1022300"},
	{Source: "product", Database: "app", Schema: "billing", Table: "subscriptions", Condensed: "subscription_id, customer_id, status, renewed_at, cancelled_at", FullSchema: "CREATE TABLE subscriptions (subscription_id bigint, customer_id bigint, status text, renewed_at timestamp, cancelled_at timestamp)", Sample: "77,42,active,2025-02-01,"},
	{Source: "product", Database: "app", Schema: "growth", Table: "signups", Condensed: "user_id, channel, signed_up_at", FullSchema: "CREATE TABLE signups (user_id bigint, channel text, signed_up_at timestamp)", Sample: "9001,paid_search,2025-04-30"},
	{Source: "support", Database: "helpdesk", Schema: "public", Table: "tickets", Condensed: "ticket_id, tier, opened_at, resolved_at", FullSchema: "CREATE TABLE tickets (ticket_id bigint, tier text, opened_at timestamp, resolved_at timestamp)", Sample: "5,gold,2025-05-01 09:00,2025-05-01 11:30"},
}

var memos = map[string]map[string]string{
	"analytics": {
		"fiscal-calendar.md": "The fiscal year starts on February 1. Fiscal weeks run Monday to Sunday.",
		"test-accounts.md":   "Exclude customers whose email ends in example.com; they are test accounts.",
		"currency.txt":       "All amount and revenue columns are stored in cents.",
	},
	"support": {
		"tiers.md": "Support tiers are gold, silver and bronze. Gold tickets have a four hour resolution target.",
	},
}

var (
	seedFileName = flag.String("src", "", "file of seed questions, one per line")
	dataDir      = flag.String("data", "./distillery_data", "data directory")
	threads      = flag.Int("threads", 4, "number of conversation threads to create")
	embed        = flag.Bool("embed", true, "embed catalog entities with the configured embedding service")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

var users = []string{"ana", "bo", "chen"}

// seedThreads deals questions round-robin across n threads. Every question
// gets a bot reply; each thread has one human.
func seedThreads(ctx context.Context, repo *badger.ThreadRepository, source iter.Seq[string], n int, start time.Time) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("thread count must be positive, got %d", n)
	}
	batches := make([][]*core.Message, n)
	i := 0
	for line := range source {
		if line == "" {
			continue
		}
		slot := i % n
		thread := fmt.Sprintf("seed-%02d", slot)
		at := start.Add(time.Duration(i) * time.Minute)
		batches[slot] = append(batches[slot],
			&core.Message{ThreadID: thread, Timestamp: at, Type: core.MessageTypeUser, Payload: line, BotID: "analyst-bot", PrimaryUser: users[slot%len(users)]},
			&core.Message{ThreadID: thread, Timestamp: at.Add(20 * time.Second), Type: core.MessageTypeBot, Payload: "Working on it: " + line, BotID: "analyst-bot"},
		)
		i++
	}

	total := 0
	for _, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		added, err := repo.AddMessages(ctx, batch...)
		if err != nil {
			return total, err
		}
		total += len(added)
	}
	return total, nil
}

func seedCatalog(ctx context.Context, db *distillery.Database) error {
	for _, entity := range catalog {
		if err := db.Catalog().UpsertEntity(ctx, entity); err != nil {
			return err
		}
	}
	if !*embed {
		return nil
	}

	texts := make([]string, len(catalog))
	for i := range catalog {
		d := catalog[i]
		d.Name = core.EntityPointer{Database: d.Database, Schema: d.Schema, Table: d.Table}.String()
		texts[i] = d.Text(core.VerbosityShort)
	}
	vectors, err := db.Provider().Embedder().EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed catalog: %w", err)
	}
	now := time.Now()
	for i, d := range catalog {
		name := core.EntityPointer{Database: d.Database, Schema: d.Schema, Table: d.Table}.String()
		if err := db.Catalog().UpsertEmbedding(ctx, "catalog", name, vectors[i], now); err != nil {
			return err
		}
	}
	return nil
}

func seedMemos(fsys hackpadfs.FS) error {
	for scope, files := range memos {
		if err := hackpadfs.MkdirAll(fsys, scope, 0o755); err != nil {
			return err
		}
		for name, content := range files {
			if err := hackpadfs.WriteFullFile(fsys, scope+"/"+name, []byte(content), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	db, err := distillery.NewDatabase(*dataDir)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(questions)
	}

	count, err := seedThreads(ctx, db.Repositories().Threads, source, *threads, time.Now().Add(-24*time.Hour))
	if err != nil {
		panic(err)
	}
	slog.Info("seeded messages", "count", count, "threads", *threads)

	if err := seedCatalog(ctx, db); err != nil {
		panic(err)
	}
	slog.Info("seeded catalog", "entities", len(catalog), "embedded", *embed)

	if err := seedMemos(db.MemoFS()); err != nil {
		panic(err)
	}

	if err := db.Repositories().Heartbeats.Beat(ctx, "seeder", time.Now()); err != nil {
		panic(err)
	}
}
