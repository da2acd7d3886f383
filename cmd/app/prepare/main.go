// Command prepare writes a pending airdrop ledger for the holders found on a
// leaderboard export.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pvzzle/airdrop/internal/ledger"
	"github.com/pvzzle/airdrop/internal/prepare"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type options struct {
	holders     string
	leaderboard string
	out         string
	force       bool

	holderColumn   string
	addressColumn  string
	quantityColumn string
	share          string
	places         int32
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build an airdrop ledger from holders and a leaderboard",
		Long: `Build an airdrop ledger from holders and a leaderboard.

Every leaderboard address that also appears in the holders file (case-insensitive)
becomes one pending ledger row, in leaderboard order and with the leaderboard's
address case. The amount is share x quantity, rounded to the given places.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.holders, "holders", "", "holders snapshot csv")
	f.StringVar(&o.leaderboard, "leaderboard", "", "leaderboard csv")
	f.StringVar(&o.out, "out", "airdrop.csv", "ledger to write")
	f.BoolVar(&o.force, "force", false, "overwrite an existing ledger")
	f.StringVar(&o.holderColumn, "holder-column", prepare.DefaultHolderColumn, "address column in the holders file")
	f.StringVar(&o.addressColumn, "address-column", prepare.DefaultAddressColumn, "address column in the leaderboard")
	f.StringVar(&o.quantityColumn, "quantity-column", prepare.DefaultQuantityColumn, "quantity column in the leaderboard")
	f.StringVar(&o.share, "share", prepare.DefaultShare.String(), "part of the quantity to airdrop")
	f.Int32Var(&o.places, "places", prepare.DefaultPlaces, "decimal places of the amount")
	_ = cmd.MarkFlagRequired("holders")
	_ = cmd.MarkFlagRequired("leaderboard")

	return cmd
}

func run(ctx context.Context, o options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	share, err := decimal.NewFromString(o.share)
	if err != nil || share.IsNegative() {
		return fmt.Errorf("invalid --share %q", o.share)
	}
	if o.places < 0 {
		return fmt.Errorf("invalid --places %d", o.places)
	}

	// an existing ledger may carry confirmation links
	if !o.force {
		if _, err := os.Stat(o.out); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite it", o.out)
		}
	}

	hf, err := os.Open(o.holders)
	if err != nil {
		return fmt.Errorf("open holders: %w", err)
	}
	defer hf.Close()
	holders, err := prepare.ReadHolders(hf, o.holderColumn)
	if err != nil {
		return err
	}
	log.Printf("[PREPARE] found %d holders", len(holders))

	lf, err := os.Open(o.leaderboard)
	if err != nil {
		return fmt.Errorf("open leaderboard: %w", err)
	}
	defer lf.Close()
	entries, err := prepare.ReadLeaderboard(lf, o.addressColumn, o.quantityColumn)
	if err != nil {
		return err
	}

	records := prepare.Build(holders, entries, prepare.Options{
		HolderColumn:   o.holderColumn,
		AddressColumn:  o.addressColumn,
		QuantityColumn: o.quantityColumn,
		Share:          share,
		Places:         o.places,
	})
	for _, r := range records {
		log.Printf("[PREPARE] matched %s -> %s", r.Recipient, r.Amount)
	}

	if err := ledger.NewFileStore(o.out).Save(ctx, records); err != nil {
		return err
	}
	log.Printf("[PREPARE] %d of %d leaderboard rows written to %s", len(records), len(entries), o.out)
	return nil
}
