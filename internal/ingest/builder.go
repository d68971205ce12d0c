package ingest

import (
	"math"
	"strings"

	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied to the subtotal when a row supplies neither a
// total nor a tax amount.
const DefaultTaxRate = 0.05

var defaultTaxRate = decimal.NewFromFloat(DefaultTaxRate)

var (
	minInt = decimal.NewFromInt(math.MinInt)
	maxInt = decimal.NewFromInt(math.MaxInt)
)

// MatchStatus describes how a canonical field was resolved for one row.
type MatchStatus string

const (
	MatchExact    MatchStatus = "exact"
	MatchPartial  MatchStatus = "partial"
	MatchInvalid  MatchStatus = "unparseable"
	MatchNotFound MatchStatus = "not_found"
)

// FieldMapping reports which header and alias supplied a canonical field.
type FieldMapping struct {
	Field  Field       `json:"field"`
	Status MatchStatus `json:"status"`
	Header string      `json:"header,omitempty"`
	Alias  string      `json:"alias,omitempty"`
	Value  string      `json:"value,omitempty"`
}

// Built is one constructed sale plus the mapping that produced it.
type Built struct {
	Sale    *models.Sale
	Mapping []FieldMapping
}

// Builder turns rows of a single upload into sales. It holds no per-row
// state; the fallback id counter is threaded through Build by the caller.
type Builder struct {
	aliases *AliasTable
	matcher Matcher
	headers []Header
}

func NewBuilder(aliases *AliasTable, matcher Matcher, headers []string) *Builder {
	return &Builder{aliases: aliases, matcher: matcher, headers: NewHeaders(headers)}
}

// Build constructs a sale from row. nextID is used when the row has no
// usable identifier; the returned counter is nextID advanced past anything
// consumed.
func (b *Builder) Build(row []string, nextID int64) (Built, int64) {
	r := rowBuild{
		b:        b,
		row:      row,
		consumed: make([]bool, len(b.headers)),
		sale:     &models.Sale{Quantity: 1},
	}
	s := r.sale

	if id, ok := r.integer(FieldSaleID); ok && id != 0 {
		s.SaleID = id
	} else {
		if ok {
			r.reject(FieldSaleID)
		}
		s.SaleID = nextID
		nextID++
	}

	s.Branch = r.text(FieldBranch)
	s.City = r.text(FieldCity)
	s.CustomerType = r.text(FieldCustomerType)
	s.Gender = r.text(FieldGender)
	s.ProductName = r.text(FieldProductName)
	s.ProductCategory = r.text(FieldProductCategory)

	price, _ := r.number(FieldUnitPrice)
	qty := decimal.NewFromInt(1)
	if q, ok := r.integer(FieldQuantity); ok {
		qty = decimal.NewFromInt(q)
	}
	tax, _ := r.number(FieldTax)
	total, _ := r.number(FieldTotalPrice)
	if p, ok := r.integer(FieldRewardPoints); ok {
		s.RewardPoints = int(p)
	}

	if total.IsZero() && !price.IsZero() && !qty.IsZero() {
		subtotal := price.Mul(qty)
		derivedTax := tax
		if derivedTax.IsZero() {
			derivedTax = subtotal.Mul(defaultTaxRate)
		}
		// A product past float64 range leaves the row underived.
		if derived := subtotal.Add(derivedTax); finite(derived) && finite(derivedTax) {
			tax, total = derivedTax, derived
		}
	}

	s.UnitPrice = price.InexactFloat64()
	s.Quantity = int(qty.IntPart())
	s.Tax = tax.InexactFloat64()
	s.TotalPrice = total.InexactFloat64()

	for _, h := range b.headers {
		if r.consumed[h.Index] || h.Index >= len(row) || row[h.Index] == "" {
			continue
		}
		s.Extra.Set(h.Name, row[h.Index])
	}

	return Built{Sale: s, Mapping: r.mapping}, nextID
}

// rowBuild tracks which columns a single row has used up.
type rowBuild struct {
	b        *Builder
	row      []string
	consumed []bool
	sale     *models.Sale
	mapping  []FieldMapping
}

func (r *rowBuild) resolve(f Field) (Match, bool) {
	m, ok := r.b.matcher.Match(r.b.aliases.For(f), r.b.headers, r.row)
	fm := FieldMapping{Field: f, Status: MatchNotFound}
	if ok {
		fm = FieldMapping{Field: f, Status: MatchPartial, Header: m.Header.Name, Alias: m.Alias, Value: m.Value}
		if m.Exact {
			fm.Status = MatchExact
		}
	}
	r.mapping = append(r.mapping, fm)
	return m, ok
}

func (r *rowBuild) text(f Field) string {
	m, ok := r.resolve(f)
	if !ok {
		return ""
	}
	r.consumed[m.Header.Index] = true
	return m.Value
}

func (r *rowBuild) number(f Field) (decimal.Decimal, bool) {
	m, ok := r.resolve(f)
	if !ok {
		return decimal.Zero, false
	}
	d, ok := parseNumber(m.Value)
	if !ok {
		r.mapping[len(r.mapping)-1].Status = MatchInvalid
		return decimal.Zero, false
	}
	r.consumed[m.Header.Index] = true
	return d, true
}

// integer is number restricted to values that fit an int. Fractions are
// truncated; anything out of range is treated as unparseable.
func (r *rowBuild) integer(f Field) (int64, bool) {
	d, ok := r.number(f)
	if !ok {
		return 0, false
	}
	if d.LessThan(minInt) || d.GreaterThan(maxInt) {
		r.reject(f)
		return 0, false
	}
	return d.IntPart(), true
}

// reject undoes a numeric match the caller decided not to use, so the
// value survives as an extra.
func (r *rowBuild) reject(f Field) {
	for i := range r.mapping {
		fm := &r.mapping[i]
		if fm.Field != f {
			continue
		}
		fm.Status = MatchInvalid
		for _, h := range r.b.headers {
			if h.Name == fm.Header {
				r.consumed[h.Index] = false
			}
		}
	}
}

var numberNoise = strings.NewReplacer(
	",", "", " ", "", "\u00a0", "",
	"$", "", "€", "", "£", "", "¥", "", "₹", "", "%", "",
)

// parseNumber reads a spreadsheet-style number, tolerating currency symbols
// and thousands separators. Values outside float64 range are rejected.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = numberNoise.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !finite(d) {
		return decimal.Zero, false
	}
	return d, true
}

func finite(d decimal.Decimal) bool {
	return !math.IsInf(d.InexactFloat64(), 0)
}
