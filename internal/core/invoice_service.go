package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invoice-studio/internal/invoice"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceService stores finalized invoices. Callers finalize records before
// handing them over; totals are recomputed from the stored inputs on read.
type InvoiceService interface {
	// Create stores rec for rec.OwnerID, assigning the owner's next number
	// when rec.InvoiceNumber is blank.
	Create(ctx context.Context, rec invoice.Record) (invoice.Record, error)
	// Update replaces the stored invoice id with rec. Owner, number (when
	// rec leaves it blank) and creation time are kept.
	Update(ctx context.Context, viewer Viewer, id int, rec invoice.Record) (invoice.Record, error)
	Get(ctx context.Context, viewer Viewer, id int) (invoice.Record, error)
	List(ctx context.Context, viewer Viewer, q ListQuery) (*InvoiceList, error)
	Delete(ctx context.Context, viewer Viewer, id int) error
}

type invoiceService struct {
	pool      *pgxpool.Pool
	numbering NumberingService
}

func NewInvoiceService(pool *pgxpool.Pool, numbering NumberingService) InvoiceService {
	return &invoiceService{pool: pool, numbering: numbering}
}

const invoiceColumns = `
	id, owner_id, template, title, logo,
	from_name, from_email, from_address, from_phone, business_number,
	bill_to_name, bill_to_email, bill_to_address, bill_to_phone, bill_to_mobile, bill_to_fax,
	invoice_number, invoice_date::text, terms, items,
	discount_type, discount_value, tax_type, tax_rate,
	notes, signature, color, currency, created_at, updated_at`

func scanInvoice(row pgx.Row) (invoice.Record, error) {
	var r invoice.Record
	var discountType string
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Template, &r.Title, &r.Logo,
		&r.From.Name, &r.From.Email, &r.From.Address, &r.From.Phone, &r.BusinessNumber,
		&r.BillTo.Name, &r.BillTo.Email, &r.BillTo.Address, &r.BillTo.Phone, &r.BillTo.Mobile, &r.BillTo.Fax,
		&r.InvoiceNumber, &r.Date, &r.Terms, &r.Items,
		&discountType, &r.Discount.Value, &r.Tax.Type, &r.Tax.Rate,
		&r.Notes, &r.Signature, &r.Color, &r.Currency, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return invoice.Record{}, err
	}
	r.Discount.Type = invoice.DiscountType(discountType)

	// The numeric columns exist for listing and search; the record's totals
	// always come from its inputs.
	r.Totals, err = invoice.ComputeTotals(r.Items, r.Discount, r.Tax)
	if err != nil {
		return invoice.Record{}, fmt.Errorf("stored invoice %d is inconsistent: %w", r.ID, err)
	}
	return r, nil
}

func (s *invoiceService) Create(ctx context.Context, rec invoice.Record) (invoice.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return invoice.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if rec.InvoiceNumber == "" {
		rec.InvoiceNumber, err = s.numbering.NextTx(ctx, tx, rec.OwnerID)
		if err != nil {
			return invoice.Record{}, err
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (
			owner_id, template, title, logo,
			from_name, from_email, from_address, from_phone, business_number,
			bill_to_name, bill_to_email, bill_to_address, bill_to_phone, bill_to_mobile, bill_to_fax,
			invoice_number, invoice_date, terms, items,
			discount_type, discount_value, tax_type, tax_rate,
			notes, signature, color, currency,
			subtotal, discount_amount, tax_amount, total, balance_due
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17::date, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32
		)
		RETURNING `+invoiceColumns,
		rec.OwnerID, rec.Template, rec.Title, rec.Logo,
		rec.From.Name, rec.From.Email, rec.From.Address, rec.From.Phone, rec.BusinessNumber,
		rec.BillTo.Name, rec.BillTo.Email, rec.BillTo.Address, rec.BillTo.Phone, rec.BillTo.Mobile, rec.BillTo.Fax,
		rec.InvoiceNumber, rec.Date, rec.Terms, rec.Items,
		string(rec.Discount.Type), rec.Discount.Value, rec.Tax.Type, rec.Tax.Rate,
		rec.Notes, rec.Signature, rec.Color, rec.Currency,
		rec.Totals.Subtotal, rec.Totals.DiscountAmount, rec.Totals.TaxAmount, rec.Totals.Total, rec.Totals.BalanceDue,
	)
	out, err := scanInvoice(row)
	if err != nil {
		if isUniqueViolation(err) {
			return invoice.Record{}, fmt.Errorf("%w: %s", ErrDuplicateInvoiceNumber, rec.InvoiceNumber)
		}
		return invoice.Record{}, fmt.Errorf("failed to insert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return invoice.Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *invoiceService) Update(ctx context.Context, viewer Viewer, id int, rec invoice.Record) (invoice.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return invoice.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID int
	var number string
	err = tx.QueryRow(ctx, `SELECT owner_id, invoice_number FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&ownerID, &number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoice.Record{}, fmt.Errorf("%w: %d", ErrInvoiceNotFound, id)
		}
		return invoice.Record{}, fmt.Errorf("failed to lock invoice %d: %w", id, err)
	}
	if !viewer.CanAccess(ownerID) {
		return invoice.Record{}, ErrForbidden
	}
	if rec.InvoiceNumber == "" {
		rec.InvoiceNumber = number
	}

	row := tx.QueryRow(ctx, `
		UPDATE invoices SET
			template = $2, title = $3, logo = $4,
			from_name = $5, from_email = $6, from_address = $7, from_phone = $8, business_number = $9,
			bill_to_name = $10, bill_to_email = $11, bill_to_address = $12, bill_to_phone = $13,
			bill_to_mobile = $14, bill_to_fax = $15,
			invoice_number = $16, invoice_date = $17::date, terms = $18, items = $19,
			discount_type = $20, discount_value = $21, tax_type = $22, tax_rate = $23,
			notes = $24, signature = $25, color = $26, currency = $27,
			subtotal = $28, discount_amount = $29, tax_amount = $30, total = $31, balance_due = $32,
			updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns,
		id, rec.Template, rec.Title, rec.Logo,
		rec.From.Name, rec.From.Email, rec.From.Address, rec.From.Phone, rec.BusinessNumber,
		rec.BillTo.Name, rec.BillTo.Email, rec.BillTo.Address, rec.BillTo.Phone,
		rec.BillTo.Mobile, rec.BillTo.Fax,
		rec.InvoiceNumber, rec.Date, rec.Terms, rec.Items,
		string(rec.Discount.Type), rec.Discount.Value, rec.Tax.Type, rec.Tax.Rate,
		rec.Notes, rec.Signature, rec.Color, rec.Currency,
		rec.Totals.Subtotal, rec.Totals.DiscountAmount, rec.Totals.TaxAmount, rec.Totals.Total, rec.Totals.BalanceDue,
	)
	out, err := scanInvoice(row)
	if err != nil {
		if isUniqueViolation(err) {
			return invoice.Record{}, fmt.Errorf("%w: %s", ErrDuplicateInvoiceNumber, rec.InvoiceNumber)
		}
		return invoice.Record{}, fmt.Errorf("failed to update invoice %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return invoice.Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *invoiceService) Get(ctx context.Context, viewer Viewer, id int) (invoice.Record, error) {
	rec, err := scanInvoice(s.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoice.Record{}, fmt.Errorf("%w: %d", ErrInvoiceNotFound, id)
		}
		return invoice.Record{}, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	if !viewer.CanAccess(rec.OwnerID) {
		return invoice.Record{}, ErrForbidden
	}
	return rec, nil
}

func (s *invoiceService) List(ctx context.Context, viewer Viewer, q ListQuery) (*InvoiceList, error) {
	where := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if viewer.Role != RoleAdmin {
		where = append(where, "owner_id = "+arg(viewer.UserID))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		p := arg("%" + search + "%")
		where = append(where, fmt.Sprintf(
			"(invoice_number ILIKE %[1]s OR title ILIKE %[1]s OR from_name ILIKE %[1]s OR bill_to_name ILIKE %[1]s OR total::text ILIKE %[1]s)", p))
	}
	if currency := strings.TrimSpace(q.Currency); currency != "" {
		where = append(where, "currency = "+arg(strings.ToUpper(currency)))
	}
	filter := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM invoices`+filter, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	column, ok := sortColumns[q.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		direction = "ASC"
	}
	page := max(q.Page, 1)

	query := `
		SELECT id, owner_id, invoice_number, title, template, from_name, bill_to_name,
		       invoice_date::text, currency, total, created_at
		FROM invoices` + filter +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT %d OFFSET %d", column, direction, direction, PageSize, (page-1)*PageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	list := &InvoiceList{Invoices: []InvoiceSummary{}, Pagination: paginate(page, total)}
	for rows.Next() {
		var it InvoiceSummary
		if err := rows.Scan(
			&it.ID, &it.OwnerID, &it.InvoiceNumber, &it.Title, &it.Template, &it.FromName, &it.BillToName,
			&it.Date, &it.Currency, &it.Total, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		list.Invoices = append(list.Invoices, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return list, nil
}

func (s *invoiceService) Delete(ctx context.Context, viewer Viewer, id int) error {
	var ownerID int
	err := s.pool.QueryRow(ctx, `SELECT owner_id FROM invoices WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrInvoiceNotFound, id)
		}
		return fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	if !viewer.CanAccess(ownerID) {
		return ErrForbidden
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete invoice %d: %w", id, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
