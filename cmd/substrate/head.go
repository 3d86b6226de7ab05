package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(headCmd)
}

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Show the chain head and a summary of its state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		hash, err := svc.Head()
		if err != nil {
			return err
		}
		s, err := svc.HeadState()
		if err != nil {
			return err
		}
		root, err := s.Root()
		if err != nil {
			return err
		}

		fmt.Printf("head:           %s\n", hash)
		fmt.Printf("height:         %d\n", s.Height)
		fmt.Printf("state root:     %s\n", root)
		fmt.Printf("accounts:       %d\n", len(s.Accounts))
		fmt.Printf("total issuance: %d\n", s.TotalIssuance)
		fmt.Printf("session:        %d (era %d)\n", s.Session.Index, s.Staking.EraIndex)
		fmt.Printf("authorities:    %d\n", len(s.Authority.Active))
		fmt.Printf("treasury pot:   %d\n", s.Treasury.Pot)
		return nil
	},
}
