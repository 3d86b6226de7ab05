// Command substrate is the node tooling for the ledger engine: it
// bootstraps a chain from a genesis file, imports and authors blocks, and
// inspects the stored chain.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/chain"
	"github.com/loxadim/substrate/internal/executive"
	"github.com/loxadim/substrate/pkg/db/pebble"
	"github.com/loxadim/substrate/pkg/log"
)

var (
	dbPath   string
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:           "substrate",
	Short:         "Deterministic ledger state-transition engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLogLevel(logLevel)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		typ := log.ConsoleLogger
		if logJSON {
			typ = log.JSONLogger
		}
		log.Init(log.Options{LogLevel: level, Type: typ})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "substrate-db", "path to the chain database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of console output")
}

// openService opens the database at --db and builds the chain service on it.
func openService() (*chain.Service, error) {
	kv, err := pebble.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	svc, err := chain.NewService(kv, executive.New())
	if err != nil {
		kv.Close()
		return nil, err
	}
	return svc, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
