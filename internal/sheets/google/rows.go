package google

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"billtracker/internal/core"
)

var header = []any{"ID", "Date", "Name", "Amount"}

const typesHeader = "Bill Types"

// billRows renders bills as a header row plus one row per bill, ordered by
// date then id. Bill types go in column F alongside.
func billRows(bills []core.Bill, types []string) [][]any {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b core.Bill) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	n := max(len(sorted), len(types)) + 1
	rows := make([][]any, n)
	rows[0] = append(slices.Clone(header), "", typesHeader)
	for i := 1; i < n; i++ {
		row := []any{"", "", "", "", "", ""}
		if i-1 < len(sorted) {
			b := sorted[i-1]
			row[0] = strconv.FormatInt(int64(b.ID), 10)
			row[1] = b.Date.String()
			row[2] = b.Name
			row[3] = b.Amount.Fixed()
		}
		if i-1 < len(types) {
			row[5] = types[i-1]
		}
		rows[i] = row
	}
	return rows
}

// parseBillRows is the inverse of billRows for the A:D columns. Rows that do
// not carry an id and a date are skipped.
func parseBillRows(values [][]any) []core.Bill {
	var out []core.Bill
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && len(row) > 0 && strings.EqualFold(row[0], "id") {
			continue
		}
		if len(row) < 4 {
			continue
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		date, err := core.ParseDate(row[1])
		if err != nil {
			continue
		}
		out = append(out, core.Bill{
			ID:     core.BillID(id),
			Date:   date,
			Name:   row[2],
			Amount: core.CoerceAmount(strings.ReplaceAll(row[3], ",", "")),
		})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
