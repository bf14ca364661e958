// Package model holds the business entities stored in the snapshot store.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a member of staff. Email and NationalID are unique.
type Employee struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	NationalID string
	BirthDate  time.Time
	Address    string
	City       string
	State      string
	PostalCode string
	Salary     float64
	Role       string
	Department string
	HiredAt    time.Time
	Active     bool
}

// Product is a sellable item. Barcode is unique; a second insert with the
// same barcode is skipped rather than rejected.
type Product struct {
	ID           int64
	Name         string
	Category     string
	Price        float64
	Cost         float64
	Stock        int64
	Barcode      string
	Supplier     string
	RegisteredAt time.Time
	Active       bool
}

// Validate checks the non-negative price and cost invariant.
func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must not be negative: %v", p.Price)
	}
	if p.Cost < 0 {
		return fmt.Errorf("product cost must not be negative: %v", p.Cost)
	}
	return nil
}

// Customer is a buyer. Contact fields are optional.
type Customer struct {
	ID           int64
	Name         string
	Email        string // empty when unknown
	Phone        string
	NationalID   string // empty when unknown
	BirthDate    time.Time
	Address      string
	City         string
	State        string
	PostalCode   string
	RegisteredAt time.Time
	Active       bool
}

// Sale records one product sold by one employee.
type Sale struct {
	ID            int64
	EmployeeID    int64
	ProductID     int64
	Quantity      int64
	UnitPrice     float64
	Discount      float64 // fraction in [0, 1)
	Total         float64
	SoldAt        time.Time
	PaymentMethod string
}

// Validate checks quantity, price and the discount range.
func (s *Sale) Validate() error {
	if s.Quantity <= 0 {
		return fmt.Errorf("sale quantity must be positive: %d", s.Quantity)
	}
	if s.UnitPrice < 0 {
		return fmt.Errorf("sale unit price must not be negative: %v", s.UnitPrice)
	}
	if s.Discount < 0 || s.Discount >= 1 {
		return fmt.Errorf("sale discount must be in [0, 1): %v", s.Discount)
	}
	return nil
}

// ComputeTotal sets Total to quantity × unit price × (1 − discount),
// rounded to two decimal places.
func (s *Sale) ComputeTotal() {
	s.Total = SaleTotal(s.Quantity, s.UnitPrice, s.Discount)
}

// SaleTotal returns quantity × unitPrice × (1 − discount) rounded to cents.
func SaleTotal(quantity int64, unitPrice, discount float64) float64 {
	total := decimal.NewFromInt(quantity).
		Mul(decimal.NewFromFloat(unitPrice)).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discount))).
		Round(2)
	f, _ := total.Float64()
	return f
}

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = []string{"Cash", "Credit Card", "Debit Card", "PIX", "Bank Slip"}
