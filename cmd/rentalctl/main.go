// Command rentalctl runs operator tasks against the booking database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nekogravitycat/stay-booking-backend/internal/db"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "rentalctl",
		Short:        "Operator tool for the stay booking backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("dsn", "", "database DSN (defaults to $DB_DSN)")

	rootCmd.AddCommand(
		migrateCmd(),
		quoteCmd(),
		bookingsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens a pool from --dsn or DB_DSN.
func connect(cmd *cobra.Command) (*pgxpool.Pool, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is required (or pass --dsn)")
	}
	return db.NewPool(cmdContext(cmd), dsn)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
