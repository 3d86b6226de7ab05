package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/state"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <genesis.json>",
	Short: "Bootstrap a new chain from a genesis configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read genesis file: %w", err)
		}
		cfg, err := state.GenesisFromJSON(raw)
		if err != nil {
			return fmt.Errorf("parse genesis file: %w", err)
		}

		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		hash, err := svc.Bootstrap(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("chain initialized, genesis %s\n", hash)
		return nil
	},
}
