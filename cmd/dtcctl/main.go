// Package main is the operator CLI: classify and extract codes offline,
// resolve them against the manufacturer store, and load curated
// manufacturer definitions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-dtc/engine/oem"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type options struct {
	store  oem.Config
	asJSON bool
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "dtcctl",
		Short:         "Inspect trouble codes and curate the manufacturer store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
		},
	}

	// Each invocation is short-lived, so the LRU only helps when asked for.
	opts.store.CacheSize, _ = strconv.Atoi(os.Getenv("OEM_CACHE_SIZE"))

	f := root.PersistentFlags()
	f.StringVar(&opts.store.Driver, "driver", envOr("OEM_STORE_DRIVER", "sqlite"), "manufacturer store backend: postgres, sqlite or neo4j")
	f.StringVar(&opts.store.DSN, "dsn", envOr("OEM_STORE_DSN", "file:oem.db"), "database DSN for postgres or sqlite")
	f.StringVar(&opts.store.Neo4jURL, "neo4j-url", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j URL")
	f.StringVar(&opts.store.Neo4jUser, "neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j user")
	f.StringVar(&opts.store.Neo4jPass, "neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	f.StringVar(&opts.store.Neo4jDatabase, "neo4j-database", os.Getenv("NEO4J_DATABASE"), "Neo4j database, server default when empty")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newClassifyCmd(opts),
		newExtractCmd(opts),
		newResolveCmd(opts),
		newLoadCmd(opts),
	)
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
