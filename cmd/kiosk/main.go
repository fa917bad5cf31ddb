// Command kiosk is a headless terminal client for a SmartCoffee machine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"smartcoffee/internal/config"
	"smartcoffee/internal/kiosk"
	"smartcoffee/internal/models"

	"github.com/spf13/cobra"
)

var Version = "dev"

type options struct {
	server  string
	session string
}

func main() {
	config.LoadEnv()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "kiosk",
		Short:   "SmartCoffee kiosk - buy coffee with PIX from a terminal",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", config.GetEnv("KIOSK_SERVER_URL", "http://localhost:3000"), "Backend base URL")
	rootCmd.PersistentFlags().StringVar(&opts.session, "session-file", config.GetEnv("KIOSK_SESSION_FILE", "kiosk-session.db"), "Local session file")

	rootCmd.AddCommand(menuCmd(opts))
	rootCmd.AddCommand(buyCmd(opts))
	rootCmd.AddCommand(resumeCmd(opts))
	rootCmd.AddCommand(cancelCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open(opts *options) (*kiosk.Kiosk, func(), error) {
	store, err := kiosk.OpenSessionStore(opts.session)
	if err != nil {
		return nil, nil, fmt.Errorf("open session file: %w", err)
	}
	return kiosk.New(kiosk.NewClient(opts.server), store), func() { store.Close() }, nil
}

func menuCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the active dosages",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, done, err := open(opts)
			if err != nil {
				return err
			}
			defer done()

			data, err := k.Menu(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range data.Dosages {
				fmt.Printf("%3d  %-24s %4dml  R$ %6.2f\n", d.ID, d.Name, d.ML, d.Price)
			}
			return nil
		},
	}
}

func buyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [dosage-id]",
		Short: "Start a PIX payment and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid dosage id %q", args[0])
			}
			k, done, err := open(opts)
			if err != nil {
				return err
			}
			defer done()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			data, err := k.Menu(ctx)
			if err != nil {
				return err
			}
			var dosage *models.KioskDosage
			for i := range data.Dosages {
				if data.Dosages[i].ID == uint(id) {
					dosage = &data.Dosages[i]
				}
			}
			if dosage == nil {
				return fmt.Errorf("dosage %d is not on the menu", id)
			}

			session, err := k.Buy(ctx, *dosage)
			if err != nil {
				if errors.Is(err, kiosk.ErrSessionActive) {
					return errors.New("a payment is already in progress; run 'kiosk resume' or 'kiosk cancel'")
				}
				return err
			}
			return wait(ctx, k, session)
		},
	}
}

func resumeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Show the pending payment again and keep waiting",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, done, err := open(opts)
			if err != nil {
				return err
			}
			defer done()

			session, err := k.Resume()
			if errors.Is(err, kiosk.ErrNoSession) {
				fmt.Println("No payment in progress.")
				return nil
			}
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return wait(ctx, k, session)
		},
	}
}

func cancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon the pending payment on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, done, err := open(opts)
			if err != nil {
				return err
			}
			defer done()
			if err := k.Cancel(); err != nil {
				return err
			}
			fmt.Println("Payment session cleared.")
			return nil
		},
	}
}

func wait(ctx context.Context, k *kiosk.Kiosk, session *kiosk.Session) error {
	fmt.Printf("%s - R$ %.2f\n", session.Dosage.Name, session.Dosage.Price)
	fmt.Printf("PIX copia e cola:\n%s\n\n", session.Pix.QRCode)
	fmt.Println("Waiting for payment...")

	status, err := k.Wait(ctx, session, func(s string) {
		if s == models.SaleStatusPending {
			fmt.Print(".")
		}
	})
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		fmt.Println("Stopped waiting; run 'kiosk resume' to continue.")
		return nil
	}
	if err != nil {
		return err
	}

	if status != models.SaleStatusApproved {
		fmt.Printf("Payment %s. Please try again.\n", status)
		return nil
	}
	fmt.Println("Payment confirmed!")
	fmt.Printf("Dispensing %dml, about %ds...\n", session.Dosage.ML, session.Dosage.TimeS)
	fmt.Println("Enjoy your coffee!")
	return nil
}
