package models

// Dimension is a sale attribute analytics can group by.
type Dimension string

const (
	DimBranch       Dimension = "branch"
	DimCity         Dimension = "city"
	DimCategory     Dimension = "product_category"
	DimCustomerType Dimension = "customer_type"
)

// Dimensions lists every grouping the summary endpoint reports.
var Dimensions = []Dimension{DimBranch, DimCity, DimCategory, DimCustomerType}

// Value returns the sale's attribute for d.
func (d Dimension) Value(s *Sale) string {
	switch d {
	case DimBranch:
		return s.Branch
	case DimCity:
		return s.City
	case DimCategory:
		return s.ProductCategory
	case DimCustomerType:
		return s.CustomerType
	default:
		return ""
	}
}

// GroupStat is the count and revenue of one group value. An empty Key is a
// bucket of its own.
type GroupStat struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// Summary is the analytics payload for one selector.
type Summary struct {
	TotalSales     int         `json:"total_sales"`
	TotalRevenue   float64     `json:"total_revenue"`
	ByBranch       []GroupStat `json:"by_branch"`
	ByCity         []GroupStat `json:"by_city"`
	ByCategory     []GroupStat `json:"by_category"`
	ByCustomerType []GroupStat `json:"by_customer_type"`
}

// Groups returns the breakdown slot for d.
func (s *Summary) Groups(d Dimension) *[]GroupStat {
	switch d {
	case DimBranch:
		return &s.ByBranch
	case DimCity:
		return &s.ByCity
	case DimCategory:
		return &s.ByCategory
	default:
		return &s.ByCustomerType
	}
}
