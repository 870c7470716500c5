package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"deskwire/internal/domain"
	"deskwire/internal/session"
)

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Manage stored peer options",
	}
	cmd.AddCommand(peersListCmd(), peersShowCmd(), peersSetCmd(), peersForgetCmd())
	return cmd
}

func peersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List peers with stored options",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := wire.Store.ListPeers()
			if err != nil {
				return err
			}
			last, _ := wire.Store.Setting(domain.SettingLastRemoteID)
			for _, id := range ids {
				mark := " "
				if id == last {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, id)
			}
			return nil
		},
	}
}

func peersShowCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the options stored for a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := wire.Store.LoadPeer(args[0])
			if err != nil {
				return err
			}
			names := make([]string, 0, len(opts))
			for k := range opts {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				v := opts[k]
				if !reveal && (k == domain.OptPassword || k == domain.OptOSPassword) && v != "" {
					v = "********"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print stored credentials")
	return cmd
}

func peersSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <name> [value]",
		Short: "Set a peer option; an omitted value deletes it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := wire.NewSession(args[0], session.Frontend{})
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			return sess.SetOption(args[1], value)
		},
	}
}

func peersForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete every option stored for a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.Store.DeletePeer(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
			return nil
		},
	}
}
