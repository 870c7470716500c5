package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskwire/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the trust anchor fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor := wire.Config.Rendezvous.Key
			if anchor == "" {
				anchor = crypto.DefaultTrustAnchor
			}
			key, err := crypto.ParseSigningKey(anchor)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(key[:]))
			return nil
		},
	}
	return cmd
}
