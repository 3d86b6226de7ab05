package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/executive"
)

func init() {
	rootCmd.AddCommand(metadataCmd)
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the runtime version and its dispatchable calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		meta := executive.New().Metadata()
		fmt.Printf("%s v%d\n", meta.SpecName, meta.SpecVersion)
		for _, call := range meta.Calls {
			fmt.Printf("  %-12s %2d  %-20s %s\n", call.Module, call.Index, call.Name, call.Policy)
		}
		return nil
	},
}
