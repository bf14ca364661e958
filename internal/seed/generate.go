// Package seed fills the store with synthetic business data. It is the
// external writer used to exercise the mirror.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bizmirror/internal/model"
)

var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fábio", "Gabriela", "Heitor",
		"Isabela", "João", "Larissa", "Marcos", "Natália", "Otávio", "Paula", "Rafael", "Sofia", "Tiago"}
	lastNames = []string{"Almeida", "Barbosa", "Costa", "Dias", "Ferreira", "Gomes", "Lima",
		"Martins", "Oliveira", "Pereira", "Ribeiro", "Santos", "Souza", "Teixeira"}
	cities = []struct{ City, State string }{
		{"São Paulo", "SP"}, {"Rio de Janeiro", "RJ"}, {"Belo Horizonte", "MG"}, {"Curitiba", "PR"},
		{"Porto Alegre", "RS"}, {"Salvador", "BA"}, {"Recife", "PE"}, {"Fortaleza", "CE"},
	}
	streets = []string{"Rua das Flores", "Avenida Brasil", "Rua XV de Novembro", "Avenida Paulista",
		"Rua da Consolação", "Rua Augusta"}
	roles = []string{"Analyst", "Developer", "Manager", "Coordinator", "Assistant",
		"Director", "Supervisor", "Specialist", "Consultant", "Technician"}
	departments = []string{"IT", "Sales", "Marketing", "HR", "Finance",
		"Operations", "Legal", "Support", "Logistics"}
	categories = []string{"Electronics", "Clothing", "Home & Garden", "Sports", "Books",
		"Beauty", "Food", "Automotive", "Toys", "Tools"}
	suppliers = []string{"Fornecedor A Ltda", "B&B Distribuidora", "Mega Suprimentos",
		"Central de Produtos", "Distribuidora Sul", "Norte Atacado"}
	adjectives = []string{"Smart", "Ergonomic", "Compact", "Premium", "Portable", "Classic", "Digital", "Eco"}
	nouns      = []string{"Chair", "Lamp", "Backpack", "Speaker", "Bottle", "Keyboard", "Jacket", "Drill", "Novel", "Blender"}
)

// Generator produces synthetic entities. Emails and barcodes are unique
// within one Generator.
type Generator struct {
	rng *rand.Rand
	now time.Time
	seq int
}

// NewGenerator creates a Generator. Equal seeds and times produce equal data.
func NewGenerator(seed uint64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

func (g *Generator) next() int {
	g.seq++
	return g.seq
}

func (g *Generator) name() string {
	return g.pick(firstNames) + " " + g.pick(lastNames)
}

func (g *Generator) email(name string) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return fmt.Sprintf("%s.%d@example.com", asciiFold(local), g.next())
}

func (g *Generator) phone() string {
	return fmt.Sprintf("(%02d) 9%04d-%04d", 11+g.rng.IntN(89), g.rng.IntN(10000), g.rng.IntN(10000))
}

func (g *Generator) postalCode() string {
	return fmt.Sprintf("%05d-%03d", g.rng.IntN(100000), g.rng.IntN(1000))
}

func (g *Generator) address() string {
	return fmt.Sprintf("%s, %d", g.pick(streets), 1+g.rng.IntN(2000))
}

// dateBetween returns a midnight date between now-maxBack and now-minBack.
func (g *Generator) dateBetween(minBack, maxBack time.Duration) time.Time {
	span := int64(maxBack - minBack)
	back := minBack
	if span > 0 {
		back += time.Duration(g.rng.Int64N(span))
	}
	t := g.now.Add(-back)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const year = 365 * 24 * time.Hour

// Employee returns a new employee; three in four are active.
func (g *Generator) Employee() *model.Employee {
	name := g.name()
	loc := cities[g.rng.IntN(len(cities))]
	return &model.Employee{
		Name:       name,
		Email:      g.email(name),
		Phone:      g.phone(),
		NationalID: g.NationalID(),
		BirthDate:  g.dateBetween(18*year, 65*year),
		Address:    g.address(),
		City:       loc.City,
		State:      loc.State,
		PostalCode: g.postalCode(),
		Salary:     round2(2000 + g.rng.Float64()*13000),
		Role:       g.pick(roles),
		Department: g.pick(departments),
		HiredAt:    g.dateBetween(0, 5*year),
		Active:     g.rng.IntN(4) != 0,
	}
}

// Product returns a new product priced 20% to 200% above cost; three in
// four are active.
func (g *Generator) Product() *model.Product {
	cost := round2(10 + g.rng.Float64()*490)
	return &model.Product{
		Name:         g.pick(adjectives) + " " + g.pick(nouns),
		Category:     g.pick(categories),
		Price:        round2(cost * (1.2 + g.rng.Float64()*1.8)),
		Cost:         cost,
		Stock:        int64(g.rng.IntN(1001)),
		Barcode:      g.Barcode(),
		Supplier:     g.pick(suppliers),
		RegisteredAt: g.dateBetween(0, 2*year),
		Active:       g.rng.IntN(4) != 0,
	}
}

// Customer returns a new customer. Contact fields are sometimes missing.
func (g *Generator) Customer() *model.Customer {
	name := g.name()
	loc := cities[g.rng.IntN(len(cities))]
	c := &model.Customer{
		Name:         name,
		BirthDate:    g.dateBetween(16*year, 80*year),
		Address:      g.address(),
		City:         loc.City,
		State:        loc.State,
		PostalCode:   g.postalCode(),
		RegisteredAt: g.dateBetween(0, 3*year),
		Active:       g.rng.IntN(5) != 0,
	}
	if g.rng.Float64() > 0.1 {
		c.Email = g.email(name)
	}
	if g.rng.Float64() > 0.05 {
		c.Phone = g.phone()
	}
	if g.rng.Float64() > 0.02 {
		c.NationalID = g.NationalID()
	}
	return c
}

// Sale returns a sale of productID by employeeID at price. Three in ten
// sales carry a discount of up to 20%.
func (g *Generator) Sale(employeeID, productID int64, price float64) *model.Sale {
	s := &model.Sale{
		EmployeeID:    employeeID,
		ProductID:     productID,
		Quantity:      int64(1 + g.rng.IntN(10)),
		UnitPrice:     price,
		SoldAt:        g.now.Add(-time.Duration(g.rng.Int64N(int64(year)))).UTC().Truncate(time.Second),
		PaymentMethod: g.pick(model.PaymentMethods),
	}
	if g.rng.Float64() > 0.7 {
		s.Discount = round2(g.rng.Float64() * 0.2)
	}
	s.ComputeTotal()
	return s
}

// NationalID returns a CPF-formatted number with valid check digits.
// The sequence number keeps IDs unique within the Generator.
func (g *Generator) NationalID() string {
	var d [11]int
	base := g.rng.IntN(100000)*10000 + g.next()%10000
	for i := 8; i >= 0; i-- {
		d[i] = base % 10
		base /= 10
	}
	d[9] = cpfDigit(d[:9])
	d[10] = cpfDigit(d[:10])
	return fmt.Sprintf("%d%d%d.%d%d%d.%d%d%d-%d%d", d[0], d[1], d[2], d[3], d[4], d[5], d[6], d[7], d[8], d[9], d[10])
}

// ValidNationalID reports whether s is a CPF with correct check digits.
func ValidNationalID(s string) bool {
	var d []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			d = append(d, int(r-'0'))
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	if len(d) != 11 {
		return false
	}
	return cpfDigit(d[:9]) == d[9] && cpfDigit(d[:10]) == d[10]
}

func cpfDigit(d []int) int {
	sum := 0
	weight := len(d) + 1
	for _, v := range d {
		sum += v * weight
		weight--
	}
	r := sum * 10 % 11
	if r == 10 {
		return 0
	}
	return r
}

// Barcode returns an EAN-13 code with a valid check digit.
func (g *Generator) Barcode() string {
	var b strings.Builder
	digits := make([]int, 12)
	n := int64(789)*1_000_000_000 + int64(g.rng.IntN(100000))*10000 + int64(g.next()%10000)
	for i := 11; i >= 0; i-- {
		digits[i] = int(n % 10)
		n /= 10
	}
	sum := 0
	for i, v := range digits {
		if i%2 == 1 {
			sum += 3 * v
		} else {
			sum += v
		}
		b.WriteByte(byte('0' + v))
	}
	b.WriteByte(byte('0' + (10-sum%10)%10))
	return b.String()
}

func round2(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

func asciiFold(s string) string {
	r := strings.NewReplacer("á", "a", "ã", "a", "â", "a", "é", "e", "ê", "e", "í", "i",
		"ó", "o", "ô", "o", "õ", "o", "ú", "u", "ç", "c")
	return r.Replace(s)
}
