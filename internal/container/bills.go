// Package container holds the controllers behind the employee pages. Each
// gesture is a method taking plain input and returning a result or an error;
// binding to HTTP happens in the handler package.
package container

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"billed/internal/format"
	"billed/internal/model"
	"billed/internal/route"
	"billed/internal/store"
)

var ErrNoStore = errors.New("no bill store configured")

// Modal is the receipt preview overlay of the bill list.
type Modal struct {
	Open    bool
	FileURL string
}

// BillsConfig wires a Bills container.
type BillsConfig struct {
	Store    store.Store
	Navigate route.Navigator
	Logger   *slog.Logger
}

// Bills drives the bill list page.
type Bills struct {
	store    store.Store
	navigate route.Navigator
	logger   *slog.Logger
	modal    Modal
}

// NewBills creates a Bills container.
func NewBills(cfg BillsConfig) *Bills {
	b := &Bills{
		store:    cfg.Store,
		navigate: cfg.Navigate,
		logger:   cfg.Logger,
	}
	if b.navigate == nil {
		b.navigate = func(string) {}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Load fetches the bills, most recent first, ready for display. A bill whose
// date cannot be formatted keeps its raw date; it is logged, never dropped.
// A store rejection is returned unchanged so its message can be shown.
func (b *Bills) Load(ctx context.Context) ([]model.DisplayBill, error) {
	if b.store == nil {
		return nil, ErrNoStore
	}
	bills, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}

	SortByDateDesc(bills)

	out := make([]model.DisplayBill, 0, len(bills))
	for _, bill := range bills {
		d := model.DisplayBill{
			Bill:            bill,
			StatusLabel:     format.Status(bill.Status),
			FormattedAmount: format.Amount(bill.Amount),
		}
		formatted, err := format.Date(bill.Date)
		if err != nil {
			b.logger.Warn("format_date_failed", "bill_id", bill.ID, "date", bill.Date, "error", err)
			formatted = bill.Date
		}
		d.FormattedDate = formatted
		out = append(out, d)
	}
	return out, nil
}

// SortByDateDesc orders bills latest first. Bills with the same date keep the
// order the store returned them in.
func SortByDateDesc(bills []model.Bill) {
	slices.SortStableFunc(bills, func(a, b model.Bill) int {
		return strings.Compare(b.Date, a.Date)
	})
}

// HandleClickNewBill navigates to the New Bill page.
func (b *Bills) HandleClickNewBill() {
	b.navigate(route.NewBill)
}

// HandleClickIconEye opens the receipt preview for fileURL.
func (b *Bills) HandleClickIconEye(fileURL string) Modal {
	b.modal = Modal{Open: true, FileURL: fileURL}
	return b.modal
}

// Modal returns the current preview state.
func (b *Bills) Modal() Modal {
	return b.modal
}

// CloseModal hides the preview.
func (b *Bills) CloseModal() {
	b.modal = Modal{}
}
