package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bizmirror/internal/database/migrations"
	"bizmirror/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Writer inserts business rows into the store. It plays the part of the
// external writers the mirror observes: seeding and the demo insert.
type Writer struct {
	db *sql.DB
}

// OpenWriter opens the store at path for writing, creating the file if needed.
func OpenWriter(path string) (*Writer, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &Writer{db: db}, nil
}

// InitSchema applies all pending migrations.
func (w *Writer) InitSchema() error {
	return migrations.MigrateUp(w.db)
}

// Status reports the schema version of the store.
func (w *Writer) Status() (migrations.Status, error) {
	return migrations.ReadStatus(w.db)
}

// Close closes the underlying connection.
func (w *Writer) Close() error {
	return w.db.Close()
}

// InsertEmployee stores e and sets its ID.
func (w *Writer) InsertEmployee(ctx context.Context, e *model.Employee) error {
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO employees (name, email, phone, national_id, birth_date, address, city,
		                       state, postal_code, salary, role, department, hired_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Email, e.Phone, e.NationalID, date(e.BirthDate), e.Address, e.City,
		e.State, e.PostalCode, e.Salary, e.Role, e.Department, date(e.HiredAt), e.Active)
	if err != nil {
		return fmt.Errorf("inserting employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading employee id: %w", err)
	}
	return nil
}

// InsertProduct stores p and sets its ID. A product whose barcode already
// exists is skipped: inserted is false and no error is returned.
func (w *Writer) InsertProduct(ctx context.Context, p *model.Product) (inserted bool, err error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO products (name, category, price, cost, stock, barcode, supplier, registered_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(barcode) DO NOTHING`,
		p.Name, p.Category, p.Price, p.Cost, p.Stock, nullString(p.Barcode), p.Supplier,
		date(p.RegisteredAt), p.Active)
	if err != nil {
		return false, fmt.Errorf("inserting product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("reading product id: %w", err)
	}
	return true, nil
}

// InsertCustomer stores c and sets its ID. Empty email and national ID are
// stored as NULL so they do not collide on the unique indexes.
func (w *Writer) InsertCustomer(ctx context.Context, c *model.Customer) error {
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO customers (name, email, phone, national_id, birth_date, address, city,
		                       state, postal_code, registered_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.NationalID), date(c.BirthDate),
		c.Address, c.City, c.State, c.PostalCode, date(c.RegisteredAt), c.Active)
	if err != nil {
		return fmt.Errorf("inserting customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading customer id: %w", err)
	}
	return nil
}

// InsertSale computes the sale total, stores s and sets its ID.
func (w *Writer) InsertSale(ctx context.Context, s *model.Sale) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.ComputeTotal()
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO sales (employee_id, product_id, quantity, unit_price, discount, total, sold_at, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EmployeeID, s.ProductID, s.Quantity, s.UnitPrice, s.Discount, s.Total,
		datetime(s.SoldAt), s.PaymentMethod)
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading sale id: %w", err)
	}
	return nil
}

// ActiveEmployeeIDs returns the IDs of active employees.
func (w *Writer) ActiveEmployeeIDs(ctx context.Context) ([]int64, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT id FROM employees WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProductPrice is a product ID with its current price.
type ProductPrice struct {
	ID    int64
	Price float64
}

// ActiveProducts returns the IDs and prices of active products.
func (w *Writer) ActiveProducts(ctx context.Context) ([]ProductPrice, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT id, price FROM products WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var out []ProductPrice
	for rows.Next() {
		var p ProductPrice
		if err := rows.Scan(&p.ID, &p.Price); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func date(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func datetime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(datetimeLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
