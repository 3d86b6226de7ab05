package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loxadim/substrate/internal/ledger"
)

func init() {
	rootCmd.AddCommand(keygenCmd)
}

type generatedKey struct {
	AccountID  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ed25519 keypair and its account identifier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, prv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		id := ledger.NewAccountID(pub)
		out, err := json.MarshalIndent(generatedKey{
			AccountID:  hex.EncodeToString(id[:]),
			PublicKey:  hex.EncodeToString(pub),
			PrivateKey: hex.EncodeToString(prv),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
