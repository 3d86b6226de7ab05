package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/balances"
	"github.com/loxadim/substrate/internal/block"
	"github.com/loxadim/substrate/internal/chain"
	"github.com/loxadim/substrate/internal/executive"
	"github.com/loxadim/substrate/internal/ledger"
	"github.com/loxadim/substrate/internal/state"
	"github.com/loxadim/substrate/pkg/db/pebble"
)

var demoBlocks uint64

func init() {
	demoCmd.Flags().Uint64Var(&demoBlocks, "blocks", 12, "number of blocks to author")
	rootCmd.AddCommand(demoCmd)
}

// demoCmd runs the whole pipeline in memory: genesis, block authoring with
// signed transfers, import, and a head summary at the end.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Author and import a few blocks on an in-memory chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := pebble.NewKVStore()
		if err != nil {
			return err
		}
		svc, err := chain.NewService(kv, executive.New())
		if err != nil {
			kv.Close()
			return err
		}
		defer svc.Close()

		alicePub, alicePrv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return err
		}
		bobPub, _, err := ed25519.GenerateKey(nil)
		if err != nil {
			return err
		}
		cfg := state.GenesisConfig{
			Params: state.DefaultParams(),
			Accounts: []state.GenesisAccount{
				{PublicKey: hex.EncodeToString(alicePub), Free: 1_000_000},
				{PublicKey: hex.EncodeToString(bobPub), Free: 1_000_000},
			},
		}
		if _, err := svc.Bootstrap(cfg); err != nil {
			return err
		}

		bob := ledger.NewAccountID(bobPub)
		for height := uint64(1); height <= demoBlocks; height++ {
			call, err := balances.NewTransferCall(bob, 10)
			if err != nil {
				return err
			}
			ext, err := block.NewSigned(alicePrv, ledger.Nonce(height-1), call)
			if err != nil {
				return err
			}
			b, err := svc.Propose(height, 0, []block.Extrinsic{ext})
			if err != nil {
				return fmt.Errorf("propose block %d: %w", height, err)
			}
			if _, err := svc.ImportBlock(b); err != nil {
				return fmt.Errorf("import block %d: %w", height, err)
			}
		}

		s, err := svc.HeadState()
		if err != nil {
			return err
		}
		fmt.Printf("authored %d blocks\n", demoBlocks)
		fmt.Printf("height:         %d\n", s.Height)
		fmt.Printf("session:        %d (era %d)\n", s.Session.Index, s.Staking.EraIndex)
		fmt.Printf("total issuance: %d\n", s.TotalIssuance)
		fmt.Printf("treasury pot:   %d\n", s.Treasury.Pot)
		return nil
	},
}
