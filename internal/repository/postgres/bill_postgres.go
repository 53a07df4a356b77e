package postgres

import (
	"context"
	"database/sql"

	"billed/internal/model"
	"billed/internal/repository"
)

const billColumns = `id, email, type, name, date, amount, vat, pct, commentary, file_url, file_name, status, created_at, updated_at`

// BillPostgres is a PostgreSQL implementation of repository.BillRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type BillPostgres struct {
	db *sql.DB
}

// NewBillPostgres creates a new BillPostgres repository.
func NewBillPostgres(db *sql.DB) *BillPostgres {
	return &BillPostgres{db: db}
}

var _ repository.BillRepository = (*BillPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*model.Bill, error) {
	var b model.Bill
	if err := row.Scan(
		&b.ID,
		&b.Email,
		&b.Type,
		&b.Name,
		&b.Date,
		&b.Amount,
		&b.VAT,
		&b.Pct,
		&b.Commentary,
		&b.FileURL,
		&b.FileName,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new bill row and returns the stored record.
func (r *BillPostgres) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	const q = `
		INSERT INTO bills (id, email, type, name, date, amount, vat, pct, commentary, file_url, file_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + billColumns
	row := r.db.QueryRowContext(ctx, q,
		bill.ID,
		bill.Email,
		string(bill.Type),
		bill.Name,
		bill.Date,
		float64(bill.Amount),
		float64(bill.VAT),
		float64(bill.Pct),
		bill.Commentary,
		bill.FileURL,
		bill.FileName,
		string(bill.Status),
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	return scanBill(row)
}

// FindByID fetches a single bill by its ID.
func (r *BillPostgres) FindByID(ctx context.Context, id string) (*model.Bill, error) {
	const q = `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	return scanBill(r.db.QueryRowContext(ctx, q, id))
}

// List returns bills, optionally restricted to one submitter, with a total count.
// A zero limit is sent as NULL, which Postgres treats as no limit.
func (r *BillPostgres) List(ctx context.Context, lq repository.ListQuery) (*repository.PageResult[model.Bill], error) {
	const qCount = `SELECT COUNT(*) FROM bills WHERE ($1 = '' OR email = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, lq.Email).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + billColumns + `
		FROM bills
		WHERE ($1 = '' OR email = $1)
		ORDER BY date DESC, created_at ASC
		LIMIT NULLIF($2, 0) OFFSET $3`
	rows, err := r.db.QueryContext(ctx, qList, lq.Email, lq.Limit, lq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Bill]{
		Items: items,
		Total: total,
	}, nil
}

// Update writes every mutable field of the bill. The submitter email and
// creation time never change.
func (r *BillPostgres) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	const q = `
		UPDATE bills
		SET type = $2, name = $3, date = $4, amount = $5, vat = $6, pct = $7,
		    commentary = $8, file_url = $9, file_name = $10, status = $11, updated_at = $12
		WHERE id = $1
		RETURNING ` + billColumns
	row := r.db.QueryRowContext(ctx, q,
		bill.ID,
		string(bill.Type),
		bill.Name,
		bill.Date,
		float64(bill.Amount),
		float64(bill.VAT),
		float64(bill.Pct),
		bill.Commentary,
		bill.FileURL,
		bill.FileName,
		string(bill.Status),
		bill.UpdatedAt,
	)
	return scanBill(row)
}
