package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// DB is the subset of *pgxpool.Pool used by PGStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore persists invoices in PostgreSQL. Amounts travel as text so numeric
// precision survives the round trip.
type PGStore struct {
	DB DB
}

const invoiceColumns = `id, invoice_number, COALESCE(client_id, ''), client_name,
	to_char(issue_date, 'YYYY-MM-DD'), to_char(due_date, 'YYYY-MM-DD'), currency,
	tax_rate::text, deposit_percentage::text, subtotal::text, tax_amount::text, grand_total::text,
	deposit_amount::text, remaining_balance::text, paid_amount::text, status, COALESCE(notes, ''),
	created_at, updated_at`

const insertInvoice = `INSERT INTO invoices (
	id, invoice_number, client_id, client_name, issue_date, due_date, currency,
	tax_rate, deposit_percentage, subtotal, tax_amount, grand_total,
	deposit_amount, remaining_balance, paid_amount, status, notes, created_at, updated_at
) VALUES ($1, $2, NULLIF($3, ''), $4, $5::date, $6::date, $7,
	$8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric,
	$13::numeric, $14::numeric, $15::numeric, $16, NULLIF($17, ''), $18, $19)`

const updateInvoice = `UPDATE invoices SET
	invoice_number = $2, client_id = NULLIF($3, ''), client_name = $4,
	issue_date = $5::date, due_date = $6::date, currency = $7,
	tax_rate = $8::numeric, deposit_percentage = $9::numeric, subtotal = $10::numeric,
	tax_amount = $11::numeric, grand_total = $12::numeric, deposit_amount = $13::numeric,
	remaining_balance = $14::numeric, paid_amount = $15::numeric, status = $16,
	notes = NULLIF($17, ''), created_at = $18, updated_at = $19
WHERE id = $1`

const insertItem = `INSERT INTO invoice_items (
	id, invoice_id, position, title, description, unit_price, quantity, discount_type, discount_value, total
) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6::numeric, $7, $8, $9::numeric, $10::numeric)`

const selectItems = `SELECT invoice_id, id, title, COALESCE(description, ''), unit_price::text, quantity,
	discount_type, discount_value::text, total::text
FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, position`

// Create implements Store.
func (s PGStore) Create(ctx context.Context, inv Invoice) error {
	return s.write(ctx, insertInvoice, inv, false)
}

// Update implements Store.
func (s PGStore) Update(ctx context.Context, inv Invoice) error {
	return s.write(ctx, updateInvoice, inv, true)
}

func (s PGStore) write(ctx context.Context, stmt string, inv Invoice, replaceItems bool) error {
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt, invoiceArgs(inv)...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		batch := &pgx.Batch{}
		if replaceItems {
			batch.Queue(`DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID)
		}
		for i, it := range inv.Items {
			batch.Queue(insertItem, it.ID, inv.ID, i, it.Title, it.Description,
				it.UnitPrice.String(), it.Quantity, string(it.DiscountKind), it.DiscountValue.String(), it.Total.String())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func invoiceArgs(inv Invoice) []any {
	return []any{
		inv.ID, inv.Number, inv.ClientID, inv.ClientName, inv.IssueDate, inv.DueDate, string(inv.Currency),
		inv.TaxRate.String(), inv.DepositPercentage.String(), inv.Subtotal.String(), inv.TaxAmount.String(),
		inv.GrandTotal.String(), inv.DepositAmount.String(), inv.RemainingBalance.String(),
		inv.PaidAmount.String(), string(inv.Status), inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	}
}

// Get implements Store.
func (s PGStore) Get(ctx context.Context, id string) (Invoice, error) {
	inv, err := scanInvoice(s.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	list := []Invoice{inv}
	if err := s.attachItems(ctx, list); err != nil {
		return Invoice{}, err
	}
	return list[0], nil
}

// List implements Store.
func (s PGStore) List(ctx context.Context, f Filter) ([]Invoice, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE ($1::text = '' OR status = $1::text)
  AND ($2::text = '' OR client_id = $2::text)
  AND ($3::text = '' OR invoice_number ILIKE '%' || $3::text || '%' OR client_name ILIKE '%' || $3::text || '%')
ORDER BY created_at DESC, invoice_number DESC`, string(f.Status), f.ClientID, f.Query)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanInvoice(row)
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete implements Store. Items cascade.
func (s PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StatsByClient implements Store.
func (s PGStore) StatsByClient(ctx context.Context, clientID string) (ClientStats, error) {
	var (
		stats ClientStats
		total string
	)
	err := s.DB.QueryRow(ctx, `SELECT count(*), COALESCE(sum(grand_total), 0)::text FROM invoices WHERE client_id = $1`, clientID).
		Scan(&stats.TotalInvoices, &total)
	if err != nil {
		return ClientStats{}, err
	}
	stats.TotalAmount, err = decimal.NewFromString(total)
	return stats, err
}

// DetachClient implements Store. The foreign key already nulls client_id on
// delete; this covers callers that detach before removing the client row.
func (s PGStore) DetachClient(ctx context.Context, clientID string) (int, error) {
	tag, err := s.DB.Exec(ctx, `UPDATE invoices SET client_id = NULL WHERE client_id = $1`, clientID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s PGStore) attachItems(ctx context.Context, list []Invoice) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, inv := range list {
		ids[i] = inv.ID
		index[inv.ID] = i
		list[i].Items = []Item{}
	}
	rows, err := s.DB.Query(ctx, selectItems, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var invoiceID, kind, price, discount, lineTotal string
		if err := rows.Scan(&invoiceID, &it.ID, &it.Title, &it.Description, &price, &it.Quantity, &kind, &discount, &lineTotal); err != nil {
			return err
		}
		it.DiscountKind = pricing.ParseDiscountKind(kind)
		if err := parseAmounts(map[*pricing.Money]string{&it.UnitPrice: price, &it.DiscountValue: discount, &it.Total: lineTotal}); err != nil {
			return err
		}
		if i, ok := index[invoiceID]; ok {
			list[i].Items = append(list[i].Items, it)
		}
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var code, status, taxRate, deposit, subtotal, tax, grand, depAmt, rem, paid string
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.ClientName, &inv.IssueDate, &inv.DueDate, &code,
		&taxRate, &deposit, &subtotal, &tax, &grand, &depAmt, &rem, &paid, &status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Currency = currency.Code(code)
	inv.Status = Status(status)
	err = parseAmounts(map[*pricing.Money]string{
		&inv.TaxRate: taxRate, &inv.DepositPercentage: deposit, &inv.Subtotal: subtotal,
		&inv.TaxAmount: tax, &inv.GrandTotal: grand, &inv.DepositAmount: depAmt,
		&inv.RemainingBalance: rem, &inv.PaidAmount: paid,
	})
	return inv, err
}

func parseAmounts(targets map[*pricing.Money]string) error {
	for dst, raw := range targets {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", raw, err)
		}
		*dst = v
	}
	return nil
}
