package ingest

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field names a canonical sale attribute.
type Field string

const (
	FieldSaleID          Field = "sale_id"
	FieldBranch          Field = "branch"
	FieldCity            Field = "city"
	FieldCustomerType    Field = "customer_type"
	FieldGender          Field = "gender"
	FieldProductName     Field = "product_name"
	FieldProductCategory Field = "product_category"
	FieldUnitPrice       Field = "unit_price"
	FieldQuantity        Field = "quantity"
	FieldTax             Field = "tax"
	FieldTotalPrice      Field = "total_price"
	FieldRewardPoints    Field = "reward_points"
)

// Fields lists the canonical fields in resolution order.
var Fields = []Field{
	FieldSaleID, FieldBranch, FieldCity, FieldCustomerType, FieldGender,
	FieldProductName, FieldProductCategory, FieldUnitPrice, FieldQuantity,
	FieldTax, FieldTotalPrice, FieldRewardPoints,
}

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// AliasGroup is the ordered alias list for one field.
type AliasGroup struct {
	Field   Field    `yaml:"field"`
	Aliases []string `yaml:"aliases"`
}

// AliasTable maps every canonical field to its aliases.
type AliasTable struct {
	Groups []AliasGroup `yaml:"fields"`
	index  map[Field][]string
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *AliasTable {
	t, err := ParseAliases(defaultAliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded aliases.yaml: %v", err))
	}
	return t
}

// LoadAliases reads an alias table from path, or returns the built-in table
// when path is empty.
func LoadAliases(path string) (*AliasTable, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes and validates a YAML alias table. Every canonical
// field needs at least one alias; unknown or repeated fields are rejected.
func ParseAliases(data []byte) (*AliasTable, error) {
	var t AliasTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse aliases: %w", err)
	}

	known := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		known[f] = true
	}

	t.index = make(map[Field][]string, len(t.Groups))
	for _, g := range t.Groups {
		if !known[g.Field] {
			return nil, fmt.Errorf("aliases: unknown field %q", g.Field)
		}
		if _, dup := t.index[g.Field]; dup {
			return nil, fmt.Errorf("aliases: field %q listed twice", g.Field)
		}
		if len(g.Aliases) == 0 {
			return nil, fmt.Errorf("aliases: field %q has no aliases", g.Field)
		}
		t.index[g.Field] = g.Aliases
	}
	for _, f := range Fields {
		if _, ok := t.index[f]; !ok {
			return nil, fmt.Errorf("aliases: missing field %q", f)
		}
	}
	return &t, nil
}

// For returns the aliases for f, most preferred first.
func (t *AliasTable) For(f Field) []string {
	return t.index[f]
}
