package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/runtime"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the runtime name and version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%d\n", runtime.SpecName, runtime.SpecVersion)
	},
}
