package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
)

// Ledger is the append-only sales file. Every state change is written as
// a full snapshot; the last line for an id is the current state.
type Ledger struct {
	path     string
	appender *jsonl.Appender

	// status is the last recorded status per sale id, guarded by the
	// appender's lock on path. size is the file size it was built from; a
	// mismatch means another writer appended and the index is rebuilt.
	status map[string]models.SaleStatus
	size   int64
}

func NewLedger(path string, appender *jsonl.Appender) *Ledger {
	if appender == nil {
		appender = jsonl.NewAppender()
	}
	return &Ledger{path: path, appender: appender}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Record appends a snapshot of sale. The status change since the previous
// snapshot must be a valid transition; a new sale must start pending.
func (l *Ledger) Record(sale *models.Sale) error {
	unlock := l.appender.Lock(l.path)
	defer unlock()

	if err := l.syncIndex(); err != nil {
		return err
	}

	prev, seen := l.status[sale.ID]
	switch {
	case !seen && sale.Status != models.SalePending:
		return fmt.Errorf("%w: new sale %s must start %s, got %s", models.ErrInvalidTransition, sale.ID, models.SalePending, sale.Status)
	case seen && prev != sale.Status && !prev.CanTransition(sale.Status):
		return fmt.Errorf("%w: %s -> %s for sale %s", models.ErrInvalidTransition, prev, sale.Status, sale.ID)
	}

	if err := jsonl.AppendLocked(l.path, sale); err != nil {
		l.status = nil
		return err
	}

	size, err := l.fileSize()
	if err != nil {
		l.status = nil
		return err
	}
	l.status[sale.ID] = sale.Status
	l.size = size
	return nil
}

// syncIndex loads the status index on first use and reloads it when the
// file no longer has the size this Ledger last left it at.
func (l *Ledger) syncIndex() error {
	size, err := l.fileSize()
	if err != nil {
		return err
	}
	if l.status != nil && size == l.size {
		return nil
	}

	status := map[string]models.SaleStatus{}
	err = jsonl.Each(l.path, func(line []byte) error {
		s, err := decodeSale(line)
		if err != nil {
			return err
		}
		status[s.ID] = s.Status
		return nil
	})
	if err != nil {
		return err
	}
	l.status, l.size = status, size
	return nil
}

func (l *Ledger) fileSize() (int64, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat ledger: %w", err)
	}
	return info.Size(), nil
}

// Get returns the current state of a sale.
func (l *Ledger) Get(id string) (*models.Sale, error) {
	sale, err := l.latest(func(s *models.Sale) bool { return s.ID == id })
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, id)
	}
	return sale, nil
}

// FindByProviderRef returns the current state of the sale carrying a
// provider order reference.
func (l *Ledger) FindByProviderRef(ref string) (*models.Sale, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty provider reference", ErrSaleNotFound)
	}

	var id string
	err := jsonl.Each(l.path, func(line []byte) error {
		s, err := decodeSale(line)
		if err != nil {
			return err
		}
		if s.ProviderRef == ref {
			id = s.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: provider reference %s", ErrSaleNotFound, ref)
	}
	return l.Get(id)
}

// History returns every snapshot recorded for a sale, oldest first.
func (l *Ledger) History(id string) ([]models.Sale, error) {
	all, err := jsonl.Decode[models.Sale](l.path)
	if err != nil {
		return nil, err
	}
	var out []models.Sale
	for _, s := range all {
		if s.ID == id {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, id)
	}
	return out, nil
}

// List returns the current state of every sale in first-seen order.
func (l *Ledger) List() ([]models.Sale, error) {
	all, err := jsonl.Decode[models.Sale](l.path)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var out []models.Sale
	for _, s := range all {
		if i, ok := index[s.ID]; ok {
			out[i] = s
			continue
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	return out, nil
}

func (l *Ledger) latest(match func(*models.Sale) bool) (*models.Sale, error) {
	var found *models.Sale
	err := jsonl.Each(l.path, func(line []byte) error {
		s, err := decodeSale(line)
		if err != nil {
			return err
		}
		if match(s) {
			found = s
		}
		return nil
	})
	return found, err
}

func decodeSale(line []byte) (*models.Sale, error) {
	var s models.Sale
	if err := json.Unmarshal(line, &s); err != nil {
		return nil, fmt.Errorf("malformed ledger line: %w", err)
	}
	return &s, nil
}
