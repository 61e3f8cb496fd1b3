package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/stay-booking-backend/internal/booking"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
)

func bookingsCmd() *cobra.Command {
	var hostID, guestID string

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List bookings for a host or a guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (hostID == "") == (guestID == "") {
				return fmt.Errorf("pass exactly one of --host or --guest")
			}

			pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := booking.NewPgxRepository(pool, retry.DefaultPolicy())
			ctx := cmdContext(cmd)

			var bookings []*booking.Booking
			if hostID != "" {
				bookings, err = repo.ListByHost(ctx, hostID)
			} else {
				bookings, err = repo.ListByGuest(ctx, guestID)
			}
			if err != nil {
				return err
			}

			printBookings(cmd.OutOrStdout(), bookings)
			return nil
		},
	}

	cmd.Flags().StringVar(&hostID, "host", "", "host user id")
	cmd.Flags().StringVar(&guestID, "guest", "", "guest user id")
	return cmd
}

func printBookings(w io.Writer, bookings []*booking.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(w, "No bookings.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-10s  %-10s  %10s  %-20s\n", "ID", "Check-in", "Check-out", "Status", "Total", "Created At")
	for _, b := range bookings {
		fmt.Fprintf(w, "%-36s  %-10s  %-10s  %-10s  %10s  %-20s\n",
			b.ID, b.CheckIn, b.CheckOut, b.Status, b.Pricing.Total, b.CreatedAt.Format(time.RFC3339))
	}
}
