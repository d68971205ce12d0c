package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, headers, row []string, nextID int64) (Built, int64) {
	t.Helper()
	return NewBuilder(DefaultAliases(), FuzzyMatcher{}, headers).Build(row, nextID)
}

func mappingFor(t *testing.T, b Built, f Field) FieldMapping {
	t.Helper()
	for _, m := range b.Mapping {
		if m.Field == f {
			return m
		}
	}
	t.Fatalf("no mapping for %s", f)
	return FieldMapping{}
}

func TestBuild_DerivesTaxAndTotal(t *testing.T) {
	b, next := build(t,
		[]string{"Product Name", "Unit Price", "Quantity"},
		[]string{"Widget", "10", "3"}, 1)

	s := b.Sale
	assert.Equal(t, int64(1), s.SaleID)
	assert.Equal(t, int64(2), next)
	assert.Equal(t, "Widget", s.ProductName)
	assert.Equal(t, 10.0, s.UnitPrice)
	assert.Equal(t, 3, s.Quantity)
	assert.InDelta(t, 1.5, s.Tax, 1e-9)
	assert.InDelta(t, 31.5, s.TotalPrice, 1e-9)
	assert.Empty(t, s.Extra)
}

func TestBuild_KeepsSuppliedTaxAndTotal(t *testing.T) {
	b, _ := build(t,
		[]string{"Unit Price", "Quantity", "Tax", "Total"},
		[]string{"10", "2", "3", "25"}, 1)

	assert.Equal(t, 3.0, b.Sale.Tax)
	assert.Equal(t, 25.0, b.Sale.TotalPrice)

	b, _ = build(t,
		[]string{"Unit Price", "Quantity", "Tax"},
		[]string{"10", "2", "4"}, 1)
	assert.Equal(t, 4.0, b.Sale.Tax)
	assert.Equal(t, 24.0, b.Sale.TotalPrice)
}

func TestBuild_NumberNoise(t *testing.T) {
	b, _ := build(t,
		[]string{"Unit Price", "Quantity"},
		[]string{"$1,200.50", "2.9"}, 1)

	assert.Equal(t, 1200.5, b.Sale.UnitPrice)
	assert.Equal(t, 2, b.Sale.Quantity)
}

func TestBuild_QuantityDefaultsToOne(t *testing.T) {
	b, _ := build(t,
		[]string{"Unit Price", "Quantity"},
		[]string{"10", "lots"}, 1)

	assert.Equal(t, 1, b.Sale.Quantity)
	assert.InDelta(t, 10.5, b.Sale.TotalPrice, 1e-9)
	assert.Equal(t, MatchInvalid, mappingFor(t, b, FieldQuantity).Status)

	v, ok := b.Sale.Extra.Get("Quantity")
	assert.True(t, ok)
	assert.Equal(t, "lots", v)
}

func TestBuild_ExtrasKeepUnmatchedColumns(t *testing.T) {
	b, _ := build(t,
		[]string{"Product Name", "Warehouse", "Notes", "Unit Price"},
		[]string{"Widget", "W-7", "", "1"}, 1)

	assert.Len(t, b.Sale.Extra, 1)
	v, ok := b.Sale.Extra.Get("Warehouse")
	assert.True(t, ok)
	assert.Equal(t, "W-7", v)
	_, ok = b.Sale.Extra.Get("Notes")
	assert.False(t, ok)
}

func TestBuild_SaleID(t *testing.T) {
	headers := []string{"Sale ID", "Product Name"}

	t.Run("from row", func(t *testing.T) {
		b, next := build(t, headers, []string{"42", "A"}, 5)
		assert.Equal(t, int64(42), b.Sale.SaleID)
		assert.Equal(t, int64(5), next)
		assert.Equal(t, MatchExact, mappingFor(t, b, FieldSaleID).Status)
		assert.Empty(t, b.Sale.Extra)
	})

	t.Run("unparseable uses counter", func(t *testing.T) {
		b, next := build(t, headers, []string{"INV-9", "A"}, 5)
		assert.Equal(t, int64(5), b.Sale.SaleID)
		assert.Equal(t, int64(6), next)
		assert.Equal(t, MatchInvalid, mappingFor(t, b, FieldSaleID).Status)
		v, _ := b.Sale.Extra.Get("Sale ID")
		assert.Equal(t, "INV-9", v)
	})

	t.Run("zero uses counter", func(t *testing.T) {
		b, next := build(t, headers, []string{"0", "A"}, 5)
		assert.Equal(t, int64(5), b.Sale.SaleID)
		assert.Equal(t, int64(6), next)
		v, _ := b.Sale.Extra.Get("Sale ID")
		assert.Equal(t, "0", v)
	})

	t.Run("missing uses counter", func(t *testing.T) {
		b, next := build(t, []string{"Product Name"}, []string{"A"}, 5)
		assert.Equal(t, int64(5), b.Sale.SaleID)
		assert.Equal(t, int64(6), next)
		assert.Equal(t, MatchNotFound, mappingFor(t, b, FieldSaleID).Status)
	})
}

func TestBuild_OutOfRangeNumbersFallBack(t *testing.T) {
	headers := []string{"Sale ID", "Unit Price", "Quantity", "Reward Points"}

	b, next := build(t, headers, []string{"1e19", "1e400", "20000000000000000000", "1e19"}, 5)
	s := b.Sale
	assert.Equal(t, int64(5), s.SaleID)
	assert.Equal(t, int64(6), next)
	assert.Zero(t, s.UnitPrice)
	assert.Equal(t, 1, s.Quantity)
	assert.Zero(t, s.RewardPoints)
	assert.Zero(t, s.TotalPrice)

	for field, raw := range map[Field]string{
		FieldSaleID:       "1e19",
		FieldUnitPrice:    "1e400",
		FieldQuantity:     "20000000000000000000",
		FieldRewardPoints: "1e19",
	} {
		assert.Equal(t, MatchInvalid, mappingFor(t, b, field).Status, field)
		v, ok := s.Extra.Get(mappingFor(t, b, field).Header)
		assert.True(t, ok, field)
		assert.Equal(t, raw, v)
	}

	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func TestBuild_OverflowingProductLeavesTotalUnderived(t *testing.T) {
	b, _ := build(t,
		[]string{"Unit Price", "Quantity"},
		[]string{"1e300", "1000000000"}, 1)

	assert.Equal(t, 1e300, b.Sale.UnitPrice)
	assert.Equal(t, 1000000000, b.Sale.Quantity)
	assert.Zero(t, b.Sale.Tax)
	assert.Zero(t, b.Sale.TotalPrice)
}

func TestBuild_MappingCoversEveryField(t *testing.T) {
	b, _ := build(t, []string{"Selling Cost"}, []string{"2"}, 1)

	require.Len(t, b.Mapping, len(Fields))
	for i, f := range Fields {
		assert.Equal(t, f, b.Mapping[i].Field)
	}
	m := mappingFor(t, b, FieldUnitPrice)
	assert.Equal(t, MatchPartial, m.Status)
	assert.Equal(t, "Selling Cost", m.Header)
	assert.Equal(t, "cost", m.Alias)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12", "12", true},
		{" 1,234.5 ", "1234.5", true},
		{"€9", "9", true},
		{"15%", "15", true},
		{"-3.25", "-3.25", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"1e400", "0", false},
		{"-1e400", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}
}
