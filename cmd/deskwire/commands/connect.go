package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskwire/internal/session"
)

func connectCmd() *cobra.Command {
	var (
		password  string
		osUser    string
		osPass    string
		remember  bool
		quality   string
		duration  time.Duration
		reconnect bool
	)

	cmd := &cobra.Command{
		Use:   "connect <id>",
		Short: "Open a headless session to a remote peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			ui := newConsoleUI(logger.Named("ui"), cmd.InOrStdin(), out, password)
			ui.osUser, ui.osPassword = osUser, osPass
			dec := &frameCounter{}
			sess, err := wire.NewSession(args[0], session.Frontend{
				UI:        ui,
				Decoder:   dec,
				Clipboard: clipboardPrinter{out: out},
			})
			if err != nil {
				return err
			}
			ui.sess = sess

			if cmd.Flags().Changed("remember") {
				if err := sess.SetRemember(remember); err != nil {
					return err
				}
			}
			if quality != "" {
				if err := sess.SetImageQuality(quality); err != nil {
					return err
				}
			}

			go func() {
				<-ctx.Done()
				_ = sess.Close()
			}()

			err = sess.Start(ctx)
			for reconnect && err != nil && ctx.Err() == nil && !errors.Is(err, session.ErrClosed) {
				logger.Warn("session ended, reconnecting", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
					err = sess.Reconnect(ctx)
				}
			}
			_ = sess.Close()

			fmt.Fprintf(out, "state=%s frames=%d\n", sess.State(), dec.frames.Load())
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "access password; prompted when empty")
	cmd.Flags().StringVar(&osUser, "os-user", "", "also log into this OS account on the remote host")
	cmd.Flags().StringVar(&osPass, "os-password", "", "password for --os-user")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember the password for this peer")
	cmd.Flags().StringVar(&quality, "quality", "", "image quality: best, balanced or low")
	cmd.Flags().DurationVar(&duration, "for", 0, "disconnect after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "reconnect after a connection error")
	return cmd
}
