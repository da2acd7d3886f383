package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var header = []string{"Address", "Airdrop_Amount", "Explorer_Link", "Status"}

// Parse reads ledger rows. The first line is always treated as the header.
// Rows without recipient or amount are dropped; status is derived from the
// confirmation column and the stored status text is ignored.
func Parse(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var (
		out       []Record
		seenFirst bool
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if !seenFirst {
			seenFirst = true
			continue
		}

		rec, ok := parseRow(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (Record, bool) {
	field := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := Record{
		Recipient:       field(0),
		Amount:          field(1),
		ConfirmationRef: field(2),
	}
	if rec.Recipient == "" || rec.Amount == "" {
		return Record{}, false
	}

	rec.Status = StatusPending
	if rec.Settled() {
		rec.Status = StatusSuccess
	}
	return rec, true
}

// Write emits the header and every record in order.
func Write(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		status := rec.Status
		if status == "" {
			status = StatusPending
		}
		if err := cw.Write([]string{rec.Recipient, rec.Amount, rec.ConfirmationRef, string(status)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
