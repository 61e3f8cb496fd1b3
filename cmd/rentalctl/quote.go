package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/stay-booking-backend/internal/config"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

func quoteCmd() *cobra.Command {
	var (
		checkIn  string
		checkOut string
		guests   pricing.Guests
	)

	cmd := &cobra.Command{
		Use:   "quote <property-id>",
		Short: "Price a stay at a stored property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := calendar.Parse(checkIn)
			if err != nil {
				return fmt.Errorf("invalid --check-in: %w", err)
			}
			out, err := calendar.Parse(checkOut)
			if err != nil {
				return fmt.Errorf("invalid --check-out: %w", err)
			}

			feeRate, taxRate, err := config.LoadPricing()
			if err != nil {
				return err
			}

			pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			p, err := property.NewPgxRepository(pool, retry.DefaultPolicy()).GetByID(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			b, err := pricing.NewEngine(feeRate, taxRate).Quote(p.PricingRules(), in, out, guests)
			if err != nil {
				return err
			}
			printQuote(cmd.OutOrStdout(), p.Title, b)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkIn, "check-in", "", "first night, YYYY-MM-DD")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "departure day, YYYY-MM-DD")
	cmd.Flags().IntVar(&guests.Adults, "adults", 1, "adults in the party")
	cmd.Flags().IntVar(&guests.Children, "children", 0, "children in the party")
	cmd.Flags().IntVar(&guests.Infants, "infants", 0, "infants in the party")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
	return cmd
}

func printQuote(w io.Writer, title string, b pricing.Breakdown) {
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "%-14s %10s x %d\n", "Nightly rate", b.NightlyRate, b.Nights)
	fmt.Fprintf(w, "%-14s %10s\n", "Subtotal", b.Subtotal)
	fmt.Fprintf(w, "%-14s %10s\n", "Cleaning fee", b.CleaningFee)
	fmt.Fprintf(w, "%-14s %10s\n", "Service fee", b.ServiceFee)
	fmt.Fprintf(w, "%-14s %10s\n", "Taxes", b.Taxes)
	fmt.Fprintf(w, "%-14s %10s\n", "Total", b.Total)
}
