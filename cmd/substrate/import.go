package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/block"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <block.bin>...",
	Short: "Execute and store wire-encoded blocks on top of the head",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read block file: %w", err)
			}
			b, err := block.BlockFromBytes(raw)
			if err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			hash, err := svc.ImportBlock(b)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			fmt.Printf("imported block %d as %s\n", b.Header.Height, hash)
		}
		return nil
	},
}
