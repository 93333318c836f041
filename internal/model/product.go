package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultUnitLabel = "unit"

// Product is a catalog entry that pre-fills the local unit cost of a quote.
type Product struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                 string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_name_live,where:deleted_at IS NULL" json:"name"`
	DefaultUnitCostLocal decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0" json:"default_unit_cost_local"`
	UnitLabel            string          `gorm:"type:varchar(50);not null;default:'unit'" json:"unit_label"`
	Notes                string          `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ProductUsage is a product joined with the time of the latest run that
// referenced it.
type ProductUsage struct {
	Product    `gorm:"embedded"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
