package payment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSale(id string) *models.Sale {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.Sale{
		ID:          id,
		Contact:     "buyer@example.com",
		Archetype:   models.Professor,
		Language:    "en",
		Topic:       "coffee",
		AmountCents: 499,
		Currency:    "EUR",
		Status:      models.SalePending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestLedgerLastSnapshotWins(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), nil)

	sale := newSale("01A")
	require.NoError(t, ledger.Record(sale))

	sale.ProviderRef = "ORDER-1"
	require.NoError(t, ledger.Record(sale))

	require.NoError(t, sale.Transition(models.SalePaid, sale.CreatedAt.Add(time.Minute)))
	require.NoError(t, ledger.Record(sale))

	got, err := ledger.Get("01A")
	require.NoError(t, err)
	assert.Equal(t, models.SalePaid, got.Status)

	byRef, err := ledger.FindByProviderRef("ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "01A", byRef.ID)

	history, err := ledger.History("01A")
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Empty(t, history[0].ProviderRef)
}

func TestLedgerRejectsInvalidTransitions(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), jsonl.NewAppender())

	paid := newSale("01B")
	paid.Status = models.SalePaid
	assert.ErrorIs(t, ledger.Record(paid), models.ErrInvalidTransition, "new sales start pending")

	sale := newSale("01C")
	require.NoError(t, ledger.Record(sale))

	skip := *sale
	skip.Status = models.SaleDelivered
	assert.ErrorIs(t, ledger.Record(&skip), models.ErrInvalidTransition)

	failed := *sale
	failed.Status = models.SaleFailed
	require.NoError(t, ledger.Record(&failed))

	revived := *sale
	revived.Status = models.SalePending
	assert.ErrorIs(t, ledger.Record(&revived), models.ErrInvalidTransition)
}

func TestLedgerIndexLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.jsonl")
	first := NewLedger(path, nil)
	sale := newSale("01D")
	require.NoError(t, first.Record(sale))
	failed := *sale
	failed.Status = models.SaleFailed
	require.NoError(t, first.Record(&failed))

	reopened := NewLedger(path, nil)
	paid := *sale
	paid.Status = models.SalePaid
	assert.ErrorIs(t, reopened.Record(&paid), models.ErrInvalidTransition)
	assert.ErrorIs(t, reopened.Record(newSale("01D")), models.ErrInvalidTransition)
}

func TestLedgerIndexSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.jsonl")
	appender := jsonl.NewAppender()
	server := NewLedger(path, appender)
	other := NewLedger(path, appender)

	sale := newSale("01E")
	require.NoError(t, server.Record(sale))

	failed := *sale
	failed.Status = models.SaleFailed
	require.NoError(t, other.Record(&failed))

	paid := *sale
	paid.Status = models.SalePaid
	assert.ErrorIs(t, server.Record(&paid), models.ErrInvalidTransition)

	got, err := server.Get("01E")
	require.NoError(t, err)
	assert.Equal(t, models.SaleFailed, got.Status)
}

func TestLedgerList(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), nil)

	a, b := newSale("01D"), newSale("01E")
	require.NoError(t, ledger.Record(a))
	require.NoError(t, ledger.Record(b))
	a.Status = models.SaleFailed
	require.NoError(t, ledger.Record(a))

	all, err := ledger.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "01D", all[0].ID)
	assert.Equal(t, models.SaleFailed, all[0].Status)
	assert.Equal(t, "01E", all[1].ID)
}

func TestLedgerNotFound(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), nil)

	_, err := ledger.Get("missing")
	assert.ErrorIs(t, err, ErrSaleNotFound)

	_, err = ledger.FindByProviderRef("")
	assert.ErrorIs(t, err, ErrSaleNotFound)

	_, err = ledger.History("missing")
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestLedgerMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0o644))

	ledger := NewLedger(path, nil)
	_, err := ledger.Get("01A")
	assert.ErrorContains(t, err, "malformed ledger line")
	assert.ErrorContains(t, ledger.Record(newSale("01A")), "malformed ledger line")
}
