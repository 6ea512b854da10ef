package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/bills"
	"billtracker/internal/blob/memory"
	"billtracker/internal/core"
)

var exportTime = time.Date(2025, time.March, 12, 18, 4, 5, 0, time.UTC)

func newStore(t *testing.T) *bills.Store {
	t.Helper()
	s := bills.New(memory.New(), bills.WithClock(func() time.Time { return exportTime }))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestExportSerializeRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	_, err := src.AddBill(ctx, bills.NewBill{Name: "Water", Amount: "42.10", Date: "2025-03-11"})
	require.NoError(t, err)
	_, err = src.AddBill(ctx, bills.NewBill{Name: "Hulu", Amount: "17.99", Date: "2025-03-14"})
	require.NoError(t, err)

	data, err := Serialize(Export(src, exportTime))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"bills\": [")
	assert.Contains(t, string(data), `"version": "1.0"`)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Version, env.Version)
	assert.True(t, exportTime.Equal(env.ExportDate))

	dst := newStore(t)
	require.NoError(t, ApplyImport(ctx, dst, env, true))

	want, wantTypes := src.Snapshot()
	got, gotTypes := dst.Snapshot()
	assert.Equal(t, wantTypes, gotTypes)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Date, got[i].Date)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "amount %s != %s", want[i].Amount, got[i].Amount)
	}
}

func TestExportEmptyStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	require.NoError(t, src.Replace(ctx, nil, nil))

	data, err := Serialize(Export(src, exportTime))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `[]`, string(raw["bills"]))
	assert.JSONEq(t, `[]`, string(raw["billTypes"]))

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, env.Bills)
	assert.Empty(t, env.BillTypes)
}

func TestDeserializeInvalidJSON(t *testing.T) {
	_, err := Deserialize([]byte("{not json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFormat))
}

func TestDeserializeWrongShape(t *testing.T) {
	_, err := Deserialize([]byte(`{"bills": "nope", "billTypes": []}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFormat))
}

func TestValidateRequiresBothArrays(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"both present", `{"bills": [], "billTypes": []}`, true},
		{"missing billTypes", `{"bills": []}`, false},
		{"missing bills", `{"billTypes": ["Water"]}`, false},
		{"null bills", `{"bills": null, "billTypes": []}`, false},
		{"no version still fine", `{"bills": [], "billTypes": ["Water"]}`, true},
		{"empty exportDate", `{"bills": [], "billTypes": [], "exportDate": ""}`, true},
		{"numeric exportDate", `{"bills": [], "billTypes": [], "exportDate": 1741564800}`, true},
		{"numeric version", `{"bills": [], "billTypes": [], "version": 1}`, true},
		{"object version", `{"bills": [], "billTypes": [], "version": {"major": 1}}`, true},
		{"not an object", `[]`, false},
		{"null document", `null`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrFormat))
		})
	}
}

func TestDecodeKeepsReadableMetadata(t *testing.T) {
	env, err := Decode([]byte(`{"bills": [], "billTypes": [], "exportDate": "2025-03-10T00:00:00Z", "version": 1}`))
	require.NoError(t, err)
	assert.True(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC).Equal(env.ExportDate))
	assert.Equal(t, "1", env.Version)

	env, err = Decode([]byte(`{"bills": [], "billTypes": [], "exportDate": "yesterday"}`))
	require.NoError(t, err)
	assert.True(t, env.ExportDate.IsZero())
	assert.Empty(t, env.Version)
}

func TestApplyImportZeroesOutOfRangeAmounts(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	env, err := Decode([]byte(`{
	  "bills": [
	    {"id": 1, "name": "A", "amount": 1e30000000, "date": "2025-03-11"},
	    {"id": 2, "name": "B", "amount": "1e30000000", "date": "2025-03-11"},
	    {"id": 3, "name": "C", "amount": 12.5, "date": "2025-03-11"}
	  ],
	  "billTypes": []
	}`))
	require.NoError(t, err)

	dst := newStore(t)
	require.NoError(t, ApplyImport(ctx, dst, env, true))

	got := dst.ListBills()
	require.Len(t, got, 3)
	assert.True(t, got[0].Amount.IsZero())
	assert.True(t, got[1].Amount.IsZero())
	assert.Equal(t, "12.5", got[2].Amount.String())

	data, err := Serialize(Export(dst, exportTime))
	require.NoError(t, err)
	assert.Less(t, len(data), 2048)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestApplyImportGivesUnusableIDsFreshOnes(t *testing.T) {
	ctx := context.Background()
	env, err := Decode([]byte(`{
	  "bills": [
	    {"id": "abc", "name": "A", "amount": 1, "date": "2025-03-11"},
	    {"id": 1.2, "name": "B", "amount": 2, "date": "2025-03-11"},
	    {"id": 1.7, "name": "C", "amount": 3, "date": "2025-03-11"},
	    {"id": 1, "name": "D", "amount": 4, "date": "2025-03-11"},
	    {"id": 1e300, "name": "E", "amount": 5, "date": "2025-03-11"}
	  ],
	  "billTypes": []
	}`))
	require.NoError(t, err)

	dst := newStore(t)
	require.NoError(t, ApplyImport(ctx, dst, env, true))

	got := dst.ListBills()
	require.Len(t, got, 5)
	ids := map[core.BillID]string{}
	for _, b := range got {
		assert.NotZero(t, b.ID, b.Name)
		_, dup := ids[b.ID]
		assert.False(t, dup, "id of %s reused", b.Name)
		ids[b.ID] = b.Name
	}
	assert.Equal(t, "D", ids[1])

	removed, err := dst.DeleteBill(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, dst.ListBills(), 4)
	for _, b := range dst.ListBills() {
		assert.NotEqual(t, "D", b.Name)
	}
}

func TestApplyImportCoercesTextAmounts(t *testing.T) {
	ctx := context.Background()
	env, err := Decode([]byte(`{
	  "bills": [
	    {"id": 1, "name": "Water", "amount": "45.50", "date": "2025-03-11"},
	    {"id": 2, "name": "Shed", "amount": "lots", "date": "2025-03-12"},
	    {"id": 3, "name": "Couch Lambert", "amount": -20, "date": "2025-03-13"}
	  ],
	  "billTypes": ["Water", "Shed"],
	  "exportDate": "2025-03-10T00:00:00Z",
	  "version": "1.0"
	}`))
	require.NoError(t, err)

	dst := newStore(t)
	require.NoError(t, ApplyImport(ctx, dst, env, true))

	got := dst.ListBills()
	require.Len(t, got, 3)
	assert.Equal(t, "45.5", got[0].Amount.String())
	assert.True(t, got[1].Amount.IsZero())
	assert.True(t, got[2].Amount.IsZero())
	assert.Equal(t, []string{"Water", "Shed"}, dst.BillTypes())
}

func TestApplyImportRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	dst := newStore(t)
	_, err := dst.AddBill(ctx, bills.NewBill{Name: "Water", Amount: "10", Date: "2025-03-11"})
	require.NoError(t, err)

	env := Envelope{Bills: []core.Bill{}, BillTypes: []string{}}
	err = ApplyImport(ctx, dst, env, false)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Len(t, dst.ListBills(), 1)
	assert.Equal(t, bills.DefaultBillTypes, dst.BillTypes())
}
