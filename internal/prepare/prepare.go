// Package prepare builds a distribution ledger from a holder snapshot and a
// leaderboard export.
package prepare

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pvzzle/airdrop/internal/ledger"

	"github.com/shopspring/decimal"
)

const (
	DefaultHolderColumn   = "HolderAddress"
	DefaultAddressColumn  = "Address"
	DefaultQuantityColumn = "Quantity"
	DefaultPlaces         = 3
)

// DefaultShare is the part of the leaderboard quantity that is airdropped.
var DefaultShare = decimal.RequireFromString("0.1")

type Options struct {
	HolderColumn   string
	AddressColumn  string
	QuantityColumn string

	Share  decimal.Decimal
	Places int32
}

func DefaultOptions() Options {
	return Options{
		HolderColumn:   DefaultHolderColumn,
		AddressColumn:  DefaultAddressColumn,
		QuantityColumn: DefaultQuantityColumn,
		Share:          DefaultShare,
		Places:         DefaultPlaces,
	}
}

// Entry is one leaderboard row.
type Entry struct {
	Address  string
	Quantity decimal.Decimal
}

// ReadHolders returns the lowercased addresses found in column.
func ReadHolders(r io.Reader, column string) (map[string]struct{}, error) {
	rows, idx, err := readTable(r, column)
	if err != nil {
		return nil, fmt.Errorf("holders: %w", err)
	}

	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		addr := strings.ToLower(cell(row, idx[0]))
		if addr == "" {
			continue
		}
		out[addr] = struct{}{}
	}
	return out, nil
}

// ReadLeaderboard returns leaderboard rows in file order, address case kept.
func ReadLeaderboard(r io.Reader, addressColumn, quantityColumn string) ([]Entry, error) {
	rows, idx, err := readTable(r, addressColumn, quantityColumn)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	var out []Entry
	for i, row := range rows {
		addr := cell(row, idx[0])
		if addr == "" {
			continue
		}
		q, err := decimal.NewFromString(cell(row, idx[1]))
		if err != nil {
			return nil, fmt.Errorf("leaderboard row %d: quantity %q: %w", i+2, cell(row, idx[1]), err)
		}
		out = append(out, Entry{Address: addr, Quantity: q})
	}
	return out, nil
}

// Build keeps the leaderboard entries held by a holder (case-insensitive) and
// turns each into a pending record worth Share of its quantity, rounded to
// Places decimals.
func Build(holders map[string]struct{}, entries []Entry, opts Options) []ledger.Record {
	var out []ledger.Record
	for _, e := range entries {
		if _, ok := holders[strings.ToLower(e.Address)]; !ok {
			continue
		}
		amount := e.Quantity.Mul(opts.Share).Round(opts.Places)
		out = append(out, ledger.Record{
			Recipient: e.Address,
			Amount:    amount.String(),
			Status:    ledger.StatusPending,
		})
	}
	return out
}

// readTable reads a CSV with a header row and resolves the named columns.
// A UTF-8 byte order mark before the header is ignored.
func readTable(r io.Reader, columns ...string) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(head) > 0 {
		head[0] = strings.TrimPrefix(head[0], "\ufeff")
	}

	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = -1
		for j, h := range head {
			if strings.TrimSpace(h) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, nil, fmt.Errorf("missing column %q", col)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
