package model

import "testing"

func TestSaleTotal(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int64
		unitPrice float64
		discount  float64
		want      float64
	}{
		{name: "no discount", quantity: 3, unitPrice: 10.5, discount: 0, want: 31.5},
		{name: "ten percent", quantity: 2, unitPrice: 99.99, discount: 0.1, want: 179.98},
		{name: "rounds half up to cents", quantity: 1, unitPrice: 0.125, discount: 0, want: 0.13},
		{name: "fractional discount", quantity: 7, unitPrice: 19.9, discount: 0.15, want: 118.41},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SaleTotal(tt.quantity, tt.unitPrice, tt.discount); got != tt.want {
				t.Errorf("SaleTotal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSale_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sale    Sale
		wantErr bool
	}{
		{name: "valid", sale: Sale{Quantity: 1, UnitPrice: 5, Discount: 0.2}},
		{name: "zero quantity", sale: Sale{Quantity: 0, UnitPrice: 5}, wantErr: true},
		{name: "negative price", sale: Sale{Quantity: 1, UnitPrice: -1}, wantErr: true},
		{name: "discount of one", sale: Sale{Quantity: 1, UnitPrice: 5, Discount: 1}, wantErr: true},
		{name: "negative discount", sale: Sale{Quantity: 1, UnitPrice: 5, Discount: -0.1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sale.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProduct_Validate(t *testing.T) {
	if err := (&Product{Name: "Mouse", Price: 10, Cost: 4}).Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if err := (&Product{Name: "Mouse", Price: -1, Cost: 4}).Validate(); err == nil {
		t.Error("Validate() expected error for negative price")
	}
	if err := (&Product{Name: "Mouse", Price: 1, Cost: -4}).Validate(); err == nil {
		t.Error("Validate() expected error for negative cost")
	}
	if err := (&Product{Price: 1, Cost: 1}).Validate(); err == nil {
		t.Error("Validate() expected error for missing name")
	}
}
