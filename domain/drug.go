package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold applies when a drug is created without one.
const DefaultLowStockThreshold int64 = 10

type Drug struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Manufacturer      string          `db:"manufacturer" json:"manufacturer"`
	Quantity          int64           `db:"quantity" json:"quantity"`
	PurchasePrice     decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SellingPrice      decimal.Decimal `db:"selling_price" json:"selling_price"`
	ExpiryDate        *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	LowStockThreshold int64           `db:"low_stock_threshold" json:"low_stock_threshold"`
	SupplierID        *string         `db:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// CatalogItem is the sellable snapshot of a drug taken when a cart line is built.
// It may go stale relative to the stored stock level.
type CatalogItem struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Manufacturer      string          `db:"manufacturer" json:"manufacturer"`
	UnitPrice         decimal.Decimal `db:"selling_price" json:"unit_price"`
	AvailableQuantity int64           `db:"quantity" json:"available_quantity"`
}

// CatalogItem returns the point-of-sale view of the drug.
func (d Drug) CatalogItem() CatalogItem {
	return CatalogItem{
		ID:                d.ID,
		Name:              d.Name,
		Manufacturer:      d.Manufacturer,
		UnitPrice:         d.SellingPrice,
		AvailableQuantity: d.Quantity,
	}
}
