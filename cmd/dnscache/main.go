package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	dnscache "go-dnscache"
	"go-dnscache/bench"
	"go-dnscache/database"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	busyTimeout time.Duration
	logFile     string
	verbose     bool

	lookupTTL  time.Duration
	recordType string

	benchWorkers []int
	benchOps     int
	benchTimeout time.Duration
	benchPause   time.Duration
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "dnscache",
		Short: "A TTL cache of DNS records backed by SQLite",
		Long: `Dnscache maintains a durable cache of name resolutions in a single
SQLite database file running in write-ahead mode. Records carry a
time-to-live; lookups resolve and store on miss, and expired records can
be listed out or purged. The bench command drives concurrent upsert load
against the store to measure write-lock contention.`,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "dns_cache.db", "Path to the cache database file")
	rootCmd.PersistentFlags().DurationVar(&busyTimeout, "busy-timeout", database.DefaultBusyTimeout, "Maximum wait for the database write lock")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append logs to this file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log at debug level")

	var lookupCmd = &cobra.Command{
		Use:   "lookup <hostname>",
		Short: "Resolve a hostname and cache the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}
	lookupCmd.Flags().DurationVar(&lookupTTL, "ttl", 300*time.Second, "Time-to-live for the cached record")
	lookupCmd.Flags().StringVar(&recordType, "type", "A", "Record type (A or AAAA)")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List currently active records",
		RunE:  runList,
	}

	var purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Remove expired records",
		RunE:  runPurge,
	}

	var benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Drive concurrent upsert load against the store",
		RunE:  runBench,
	}
	benchCmd.Flags().IntSliceVar(&benchWorkers, "workers", []int{1, 5, 10, 20, 50, 100}, "Ascending worker counts to test")
	benchCmd.Flags().IntVar(&benchOps, "ops", 1000, "Operations per worker")
	benchCmd.Flags().DurationVar(&benchTimeout, "op-timeout", 100*time.Millisecond, "Per-operation deadline")
	benchCmd.Flags().DurationVar(&benchPause, "pause", time.Millisecond, "Pause between operations per worker")

	rootCmd.AddCommand(lookupCmd, listCmd, purgeCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the command logger. Logs go to stderr so they don't mix
// with command output; with --log-file they are teed to the file as well.
func newLogger() (*slog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
		level             = slog.LevelInfo
	)

	if verbose {
		level = slog.LevelDebug
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
		cleanup = func() { _ = file.Close() }
	}

	var logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, cleanup, nil
}

func openStore() (*database.Store, func(), error) {
	db, err := database.Open(dbPath, busyTimeout)
	if err != nil {
		return nil, nil, err
	}

	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return database.NewStore(db), func() { _ = db.Close() }, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		ctx      = context.Background()
		hostname = args[0]
		cache    = dnscache.New(store, dnscache.WithLogger(logger))
	)

	ip, hit, err := cache.LookupOrResolve(ctx, hostname, recordType, lookupTTL)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", hostname, err)
	}

	if hit {
		fmt.Printf("%s -> %s (cached)\n", hostname, ip)
	} else {
		fmt.Printf("%s -> %s\n", hostname, ip)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		ctx   = context.Background()
		cache = dnscache.New(store, dnscache.WithLogger(logger))
	)

	records, err := cache.ListActive(ctx, time.Now())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No active records found")
		return nil
	}

	fmt.Println("\nActive DNS Records:")
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%-30s %-18s %-6s %-25s\n", "Hostname", "IP Address", "Type", "Expires At")
	fmt.Println(strings.Repeat("-", 80))
	for _, record := range records {
		fmt.Printf("%-30s %-18s %-6s %-25s\n",
			record.Hostname, record.IPAddress, record.RecordType,
			record.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		ctx   = context.Background()
		cache = dnscache.New(store, dnscache.WithLogger(logger))
	)

	removed, err := cache.Purge(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Cleanup completed, removed %d expired records\n", removed)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Printf("Running stress test with %d operations per worker\n", benchOps)

	var results = bench.RunLevels(context.Background(), store, benchWorkers, bench.Config{
		OpsPerWorker: benchOps,
		OpTimeout:    benchTimeout,
		Pause:        benchPause,
		Logger:       logger,
	})

	bench.WriteTable(os.Stdout, results)
	return nil
}
