package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"s2j/internal"
	"s2j/internal/config"
	"s2j/internal/ingest"
	"s2j/internal/jobber"
	"s2j/internal/listener"
	"s2j/internal/pipeline"
	"s2j/internal/pricing"
	"s2j/internal/saberis"
	"s2j/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", cfg.ListenerIngestBatch, "max documents per pass")
		_ = fs.Parse(os.Args[2:])
		cache := makeCache(ctx, cfg)
		svc := ingest.NewService(db, saberis.NewClient(cfg), cache, *batch)
		res, err := svc.Run(ctx)
		must(err)
		fmt.Printf("ingest done fetched=%d stored=%d skipped=%d\n", res.Fetched, res.Stored, res.Skipped)
	case "exports:list":
		records, err := db.ListExports()
		must(err)
		for _, rec := range records {
			sent := " "
			if rec.SentToJobber {
				sent = "x"
			}
			fmt.Printf("[%s] %s  %s  %s  %s\n", sent, rec.SaberisID, rec.ExportDate, rec.CustomerName, rec.ShippingSummary)
		}
		fmt.Printf("%d export(s)\n", len(records))
	case "exports:prune":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		keep := fs.Int("keep", cfg.ExportKeepCount, "records to keep")
		_ = fs.Parse(os.Args[2:])
		removed, err := db.PruneExports(*keep)
		must(err)
		fmt.Printf("pruned %d export(s), kept newest %d\n", removed, *keep)
	case "order:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "export id")
		_ = fs.Parse(os.Args[2:])
		order := loadOrder(ctx, db, cfg, *id)
		out, err := json.MarshalIndent(order, "", "  ")
		must(err)
		fmt.Println(string(out))
	case "send":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "export id")
		target := fs.String("target", "", "Jobber quote or job id")
		targetType := fs.String("type", "quote", "quote|job")
		copies := fs.Int("copies", 1, "quantity multiplier")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*target) == "" {
			must(fmt.Errorf("--target is required"))
		}
		order := loadOrder(ctx, db, cfg, *id)
		desired := pipeline.SynthesizeOrder(order, *copies)
		client, err := jobber.NewClient(ctx, cfg)
		must(err)
		res, err := client.SyncLineItems(ctx, desired, jobber.Target{ID: *target, Type: parseTargetType(*targetType)})
		must(err)
		must(db.MarkSent(*id, true))
		fmt.Printf("send done added=%d updated=%d products=%d\n", res.Added, res.Updated, res.ProductsUpserted)
	case "quote:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "export id")
		title := fs.String("title", "", "quote title (defaults to the customer name)")
		copies := fs.Int("copies", 1, "quantity multiplier")
		_ = fs.Parse(os.Args[2:])
		order := loadOrder(ctx, db, cfg, *id)
		desired := pipeline.SynthesizeOrder(order, *copies)
		client, err := jobber.NewClient(ctx, cfg)
		must(err)
		clientID, propertyID, err := client.CreateClientAndProperty(ctx, order)
		must(err)
		if strings.TrimSpace(*title) == "" {
			*title = order.CustomerName
		}
		quoteID, err := client.CreateQuote(ctx, clientID, propertyID, *title, desired)
		must(err)
		must(db.MarkSent(*id, true))
		fmt.Printf("quote created id=%s lines=%d\n", quoteID, len(desired))
	case "jobber:clear":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		target := fs.String("target", "", "Jobber quote or job id")
		targetType := fs.String("type", "quote", "quote|job")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*target) == "" {
			must(fmt.Errorf("--target is required"))
		}
		client, err := jobber.NewClient(ctx, cfg)
		must(err)
		deleted, err := client.DeleteSyncedLineItems(ctx, jobber.Target{ID: *target, Type: parseTargetType(*targetType)})
		must(err)
		fmt.Printf("cleared %d synced line item(s)\n", deleted)
	case "pricing:get":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		catalogID := fs.String("catalog", "", "catalog id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*catalogID) == "" {
			must(fmt.Errorf("--catalog is required"))
		}
		cache := makeCache(ctx, cfg)
		item := cache.Get(*catalogID)
		out, err := json.MarshalIndent(item, "", "  ")
		must(err)
		fmt.Println(string(out))
	case "pricing:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		catalogID := fs.String("catalog", "", "catalog id")
		multiplier := fs.Float64("multiplier", 0, "price multiplier")
		margin := fs.Float64("margin", 0, "margin")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*catalogID) == "" {
			must(fmt.Errorf("--catalog is required"))
		}
		cache := makeCache(ctx, cfg)
		if !cache.Set(*catalogID, *multiplier, *margin) {
			must(fmt.Errorf("could not save pricing for %s", *catalogID))
		}
		fmt.Printf("saved pricing for %s\n", *catalogID)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "export id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		order := loadOrder(ctx, db, cfg, *id)
		desired := pipeline.SynthesizeOrder(order, 1)
		rows := pipeline.BuildPreviewRows(desired, nil, nil)
		must(pipeline.ExportPreviewXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "jobber:auth-url":
		auth, err := jobber.NewAuth(cfg)
		must(err)
		url, state := auth.AuthorizationURL()
		fmt.Printf("visit: %s\nstate: %s\n", url, state)
	case "jobber:exchange":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		code := fs.String("code", "", "authorization code from the redirect")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("--code is required"))
		}
		auth, err := jobber.NewAuth(cfg)
		must(err)
		must(auth.Exchange(ctx, *code))
	case "listen":
		cache := makeCache(ctx, cfg)
		s := listener.NewService(db, cfg, cache)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func loadOrder(ctx context.Context, db *storage.DB, cfg config.Config, id string) internal.Order {
	if strings.TrimSpace(id) == "" {
		must(fmt.Errorf("--id is required"))
	}
	rec, err := db.GetExport(id)
	must(err)
	if rec == nil {
		must(fmt.Errorf("export not found: %s", id))
	}
	order, err := ingest.DecodeOrder(*rec, makeCache(ctx, cfg))
	must(err)
	return order
}

func makeCache(ctx context.Context, cfg config.Config) *pricing.Cache {
	store, err := pricing.NewSheetStore(ctx, cfg)
	must(err)
	return pricing.NewCache(store, time.Duration(cfg.PricingCacheMaxAgeSec)*time.Second)
}

func parseTargetType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quote":
		return jobber.TargetQuote
	case "job":
		return jobber.TargetJob
	default:
		return value
	}
}

func usage() {
	fmt.Println("usage: s2j <command>")
	fmt.Println("commands:")
	fmt.Println("  ingest [--batch=20]")
	fmt.Println("  exports:list")
	fmt.Println("  exports:prune [--keep=3]")
	fmt.Println("  order:show --id=...")
	fmt.Println("  send --id=... --target=... [--type=quote|job] [--copies=1]")
	fmt.Println("  quote:create --id=... [--title=...] [--copies=1]")
	fmt.Println("  jobber:clear --target=... [--type=quote|job]")
	fmt.Println("  pricing:get --catalog=...")
	fmt.Println("  pricing:set --catalog=... --multiplier=1.0 --margin=0.3")
	fmt.Println("  export:xlsx --id=... --out=./out/preview.xlsx")
	fmt.Println("  jobber:auth-url")
	fmt.Println("  jobber:exchange --code=...")
	fmt.Println("  listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
