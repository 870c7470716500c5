package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskwire/internal/rendezvous"
)

// probeCmd runs host selection and prints the endpoints a session would use.
func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Select the rendezvous host and print its endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scheme := wire.Selector.Scheme()
			host := wire.Config.Rendezvous.CustomServer
			if host == "" {
				var err error
				if host, err = wire.Selector.Probe(ctx); err != nil {
					return err
				}
			}
			fmt.Printf("Host:       %s\n", host)
			fmt.Printf("Rendezvous: %s\n", rendezvous.RendezvousURI(scheme, host))
			fmt.Printf("Relay:      %s\n", rendezvous.DefaultRelayURI(scheme, host))
			return nil
		},
	}
}
