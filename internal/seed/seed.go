package seed

import (
	"context"
	"fmt"
	"time"

	"bizmirror/internal/database"
	"bizmirror/internal/mirror"
	"bizmirror/internal/model"
)

// Counts is how many rows of each kind to generate.
type Counts struct {
	Employees int
	Products  int
	Customers int
	Sales     int
}

// DefaultCounts matches the size of the demo data set.
var DefaultCounts = Counts{Employees: 50, Products: 100, Customers: 200, Sales: 500}

// Result reports how many rows were actually inserted.
type Result struct {
	Employees int
	Products  int
	Customers int
	Sales     int
}

// Seeder inserts generated rows through a Writer.
type Seeder struct {
	writer *database.Writer
	gen    *Generator
	logger mirror.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(writer *database.Writer, gen *Generator, logger mirror.Logger) *Seeder {
	return &Seeder{writer: writer, gen: gen, logger: logger}
}

// Run inserts employees, products and customers, then sales between active
// employees and active products. Rows that violate a unique constraint are
// skipped and logged.
func (s *Seeder) Run(ctx context.Context, counts Counts) (Result, error) {
	var res Result

	for range counts.Employees {
		if err := s.writer.InsertEmployee(ctx, s.gen.Employee()); err != nil {
			s.logger.Warn("employee skipped", "error", err)
			continue
		}
		res.Employees++
	}

	for range counts.Products {
		inserted, err := s.writer.InsertProduct(ctx, s.gen.Product())
		if err != nil {
			return res, err
		}
		if inserted {
			res.Products++
		}
	}

	for range counts.Customers {
		if err := s.writer.InsertCustomer(ctx, s.gen.Customer()); err != nil {
			s.logger.Warn("customer skipped", "error", err)
			continue
		}
		res.Customers++
	}

	employees, err := s.writer.ActiveEmployeeIDs(ctx)
	if err != nil {
		return res, err
	}
	products, err := s.writer.ActiveProducts(ctx)
	if err != nil {
		return res, err
	}
	if len(employees) == 0 || len(products) == 0 {
		s.logger.Warn("no active employees or products, sales skipped")
		return res, nil
	}

	for range counts.Sales {
		emp := employees[s.gen.rng.IntN(len(employees))]
		prod := products[s.gen.rng.IntN(len(products))]
		if err := s.writer.InsertSale(ctx, s.gen.Sale(emp, prod.ID, prod.Price)); err != nil {
			return res, fmt.Errorf("inserting sale: %w", err)
		}
		res.Sales++
	}

	s.logger.Info("seed complete",
		"employees", res.Employees,
		"products", res.Products,
		"customers", res.Customers,
		"sales", res.Sales,
	)
	return res, nil
}

// InsertTest inserts one customer and one product stamped with now, the
// smallest change that makes the mirror export two tables.
func InsertTest(ctx context.Context, w *database.Writer, now time.Time) error {
	stamp := now.Format("15:04:05")
	customer := &model.Customer{
		Name:         "Test Customer " + stamp,
		Email:        fmt.Sprintf("auto%d@test.example.com", now.UnixNano()),
		Phone:        "(11) 99999-0000",
		City:         "São Paulo",
		RegisteredAt: now,
		Active:       true,
	}
	if err := w.InsertCustomer(ctx, customer); err != nil {
		return err
	}

	product := &model.Product{
		Name:         "Test Product " + stamp,
		Category:     "Automation",
		Price:        99.99,
		Cost:         50.00,
		Stock:        50,
		Barcode:      fmt.Sprintf("%d", now.UnixNano()),
		Supplier:     "Test Supplier",
		RegisteredAt: now,
		Active:       true,
	}
	if _, err := w.InsertProduct(ctx, product); err != nil {
		return err
	}
	return nil
}
