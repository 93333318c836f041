package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

// QuoteRun is a saved calculation: the inputs exactly as submitted and the
// outputs the solver produced for them.
type QuoteRun struct {
	ID          uuid.UUID                        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RunName     string                           `gorm:"type:varchar(255);not null;index" json:"run_name"`
	ProductID   *uuid.UUID                       `gorm:"type:uuid;index" json:"product_id"`
	Product     *Product                         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PricingMode string                           `gorm:"type:varchar(1);not null" json:"pricing_mode"`
	Inputs      datatypes.JSONType[quote.Inputs] `json:"inputs"`
	Outputs     datatypes.JSONType[quote.Output] `json:"outputs"`
	CreatedBy   *uuid.UUID                       `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt   time.Time                        `gorm:"index" json:"created_at"`
}
