package models

import (
	"time"

	"github.com/google/uuid"
)

// Sale is a single transaction stored in a tenant partition. SaleID is
// unique within the partition only.
type Sale struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	SaleID          int64      `db:"sale_id"          json:"sale_id"`
	Branch          string     `db:"branch"           json:"branch"`
	City            string     `db:"city"             json:"city"`
	CustomerType    string     `db:"customer_type"    json:"customer_type"`
	Gender          string     `db:"gender"           json:"gender"`
	ProductName     string     `db:"product_name"     json:"product_name"`
	ProductCategory string     `db:"product_category" json:"product_category"`
	UnitPrice       float64    `db:"unit_price"       json:"unit_price"`
	Quantity        int        `db:"quantity"         json:"quantity"`
	Tax             float64    `db:"tax"              json:"tax"`
	TotalPrice      float64    `db:"total_price"      json:"total_price"`
	RewardPoints    int        `db:"reward_points"    json:"reward_points"`
	Extra           Extras     `db:"extra"            json:"extra"`
	CompanyID       *uuid.UUID `db:"-"                json:"company_id"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// SaleFilter narrows a listing. Empty fields do not filter.
type SaleFilter struct {
	Branch          string
	City            string
	CustomerType    string
	ProductCategory string
}

// Matches reports whether s passes every non-empty filter field.
func (f SaleFilter) Matches(s *Sale) bool {
	return (f.Branch == "" || s.Branch == f.Branch) &&
		(f.City == "" || s.City == f.City) &&
		(f.CustomerType == "" || s.CustomerType == f.CustomerType) &&
		(f.ProductCategory == "" || s.ProductCategory == f.ProductCategory)
}
