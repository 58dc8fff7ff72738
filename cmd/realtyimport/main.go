package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"realtyimport/internal/adapter/report"
	"realtyimport/internal/app"
	"realtyimport/internal/config"
	"realtyimport/internal/schema"
)

func main() {
	configPath := flag.String("config", "", "path to YAML or JSON config (default: $CONFIG_PATH)")
	verify := flag.Bool("verify", false, "re-read the written report and check it against the statistics")
	history := flag.Int("history", 0, "print the N most recent import runs as JSON and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: could not load config: %v", err)
	}
	if err := cfg.Validate(schema.Names()); err != nil {
		log.Fatalf("FATAL: invalid config: %v", err)
	}
	os.Exit(run(context.Background(), cfg, *verify, *history))
}

func run(ctx context.Context, cfg *config.Config, verify bool, history int) int {
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not start: %v\n", err)
		return 1
	}
	defer a.Shutdown()

	if history > 0 {
		return printHistory(ctx, a, history)
	}
	if cfg.Import.Interval > 0 {
		if err := a.RunScheduled(ctx); err != nil {
			slog.Error("Scheduled import failed", slog.String("component", "app"), slog.Any("error", err))
			return 1
		}
		return 0
	}

	result, err := a.RunOnce(ctx)
	if err != nil {
		slog.Error("Import failed", slog.String("component", "app"), slog.Any("error", err))
		return 1
	}
	if verify {
		if err := verifyReport(cfg.Import.ReportFile, result.Statistics.Total); err != nil {
			slog.Error("Report verification failed", slog.String("component", "app"), slog.Any("error", err))
			return 1
		}
		slog.Info("Report verified", slog.String("component", "app"), slog.String("path", cfg.Import.ReportFile))
	}
	out, err := json.Marshal(result.Statistics)
	if err != nil {
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func printHistory(ctx context.Context, a *app.App, n int) int {
	runs, err := a.History(ctx, n)
	if err != nil {
		slog.Error("Failed to load import history", slog.Any("error", err))
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		slog.Error("Failed to print import history", slog.Any("error", err))
		return 1
	}
	return 0
}

// verifyReport проверяет, что отчет читается и содержит total записей.
func verifyReport(path string, total int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()
	entries, err := report.Decode(f)
	if err != nil {
		return err
	}
	if len(entries) != total {
		return fmt.Errorf("report has %d entries, statistics total is %d", len(entries), total)
	}
	return nil
}
