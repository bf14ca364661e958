package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"bizmirror/internal/database/migrations"
	"bizmirror/internal/mirror"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore reads the business snapshot store. Every call opens its own
// read-only connection and closes it before returning, so the store file is
// never held open between cycles.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore creates a store for the SQLite file at path. The file does
// not need to exist yet.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// OpenConnection opens a read-write connection with foreign keys enforced.
// Used by the seeding and schema tools; the mirror only reads.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fileURI(path, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens a read-only connection to an existing store file.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fileURI(path, "mode=ro&_busy_timeout=5000"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// fileURI renders path as an SQLite URI filename. The path is
// percent-encoded so '?', '#' and '%' in file or directory names reach
// SQLite as part of the name instead of starting the query or fragment.
func fileURI(path, query string) string {
	uri := "file:" + (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath()
	if query != "" {
		uri += "?" + query
	}
	return uri
}

// Path returns the store file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Exists reports whether the store file is present.
func (s *SQLiteStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%w: %s", mirror.ErrStoreUnavailable, s.path)
	}
	return OpenReadOnly(s.path)
}

// TableNames lists every table in the catalog, sorted by name.
func (s *SQLiteStore) TableNames(ctx context.Context) ([]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return names, nil
}

// CountRows returns the number of rows in table.
func (s *SQLiteStore) CountRows(ctx context.Context, table string) (int64, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return n, nil
}

// ReadTable returns every row of table in storage order.
func (s *SQLiteStore) ReadTable(ctx context.Context, table string) (*mirror.Table, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	declared, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	rows, err := db.QueryContext(ctx, "SELECT "+selectList(declared, "")+" FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	columns, rowValues, err := scanAll(rows, declared)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	return &mirror.Table{Name: table, Columns: columns, Rows: rowValues}, nil
}

// EmployeesWithSales returns the active employees with their sales, each
// sale carrying the product name and category. Sales are newest first.
func (s *SQLiteStore) EmployeesWithSales(ctx context.Context) ([]mirror.EmployeeSales, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	empDeclared, err := tableColumns(ctx, db, "employees")
	if err != nil {
		return nil, fmt.Errorf("reading employees: %w", err)
	}
	saleDeclared, err := tableColumns(ctx, db, "sales")
	if err != nil {
		return nil, fmt.Errorf("reading sales: %w", err)
	}

	empRows, err := db.QueryContext(ctx, "SELECT "+selectList(empDeclared, "")+" FROM employees WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("reading employees: %w", err)
	}
	empCols, employees, err := scanAll(empRows, empDeclared)
	empRows.Close()
	if err != nil {
		return nil, fmt.Errorf("reading employees: %w", err)
	}

	idIdx := -1
	for i, c := range empCols {
		if c.Name == "id" {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return nil, errors.New("employees table has no id column")
	}

	salesQuery := `
		SELECT ` + selectList(saleDeclared, "s") + `, p.name AS product_name, p.category AS category
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.employee_id = ?
		ORDER BY s.sold_at DESC, s.id DESC`

	result := make([]mirror.EmployeeSales, 0, len(employees))
	for _, emp := range employees {
		saleRows, err := db.QueryContext(ctx, salesQuery, emp[idIdx])
		if err != nil {
			return nil, fmt.Errorf("reading sales: %w", err)
		}
		saleCols, sales, err := scanAll(saleRows, saleDeclared)
		saleRows.Close()
		if err != nil {
			return nil, fmt.Errorf("reading sales: %w", err)
		}

		entry := mirror.EmployeeSales{
			Employee: mirror.NewRecord(empCols, emp),
			Sales:    make([]mirror.Record, len(sales)),
		}
		for i, sale := range sales {
			entry.Sales[i] = mirror.NewRecord(saleCols, sale)
		}
		result = append(result, entry)
	}
	return result, nil
}

// CheckMigrations verifies the store schema is up-to-date. The migration
// driver records its bookkeeping table on open, so this uses a writable
// connection.
func (s *SQLiteStore) CheckMigrations() error {
	if !s.Exists() {
		return fmt.Errorf("%w: %s", mirror.ErrStoreUnavailable, s.path)
	}
	db, err := OpenConnection(s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.CheckDBMigrationStatus(db)
}

// tableColumns reads the declared columns of table in storage order.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]mirror.Column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []mirror.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declType   string
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, mirror.Column{Name: name, DeclType: strings.ToUpper(declType)})
	}
	return columns, rows.Err()
}

// selectList renders the result columns for declared, qualified by alias
// when it is non-empty. Temporal columns go through a unary plus: the result
// then has no declared type, so the driver returns the stored value as is
// instead of parsing it into a time.Time and losing its original text.
func selectList(declared []mirror.Column, alias string) string {
	if len(declared) == 0 {
		if alias != "" {
			return alias + ".*"
		}
		return "*"
	}
	parts := make([]string, len(declared))
	for i, c := range declared {
		ref := quoteIdent(c.Name)
		if alias != "" {
			ref = alias + "." + ref
		}
		if isTemporal(c.DeclType) {
			ref = "+" + ref + " AS " + quoteIdent(c.Name)
		}
		parts[i] = ref
	}
	return strings.Join(parts, ", ")
}

func isTemporal(declType string) bool {
	return strings.Contains(declType, "DATE") || strings.Contains(declType, "TIME")
}

// scanAll drains rows into raw driver values along with column metadata.
// Result columns without a declared type take it from declared by name.
func scanAll(rows *sql.Rows, declared []mirror.Column) ([]mirror.Column, [][]any, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}
	declTypes := make(map[string]string, len(declared))
	for _, c := range declared {
		declTypes[c.Name] = c.DeclType
	}
	columns := make([]mirror.Column, len(types))
	for i, ct := range types {
		declType := strings.ToUpper(ct.DatabaseTypeName())
		if declType == "" {
			declType = declTypes[ct.Name()]
		}
		columns[i] = mirror.Column{Name: ct.Name(), DeclType: declType}
	}

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

// quoteIdent quotes a table name for interpolation into SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Compile-time checks
var (
	_ mirror.Store          = (*SQLiteStore)(nil)
	_ mirror.RelationReader = (*SQLiteStore)(nil)
)
