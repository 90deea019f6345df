package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStats is a point-in-time rollup for one organization and range.
// Pending covers open balances not yet due plus payments in processing.
type PaymentStats struct {
	OrganizationID uuid.UUID             `json:"organization_id"`
	From           time.Time             `json:"from"`
	To             time.Time             `json:"to"`
	AsOf           time.Time             `json:"as_of"`
	Collected      decimal.Decimal       `json:"collected"`
	Pending        decimal.Decimal       `json:"pending"`
	Overdue        decimal.Decimal       `json:"overdue"`
	Refunded       decimal.Decimal       `json:"refunded"`
	PlatformFees   decimal.Decimal       `json:"platform_fees"`
	TotalCount     int                   `json:"total_count"`
	OverdueCount   int                   `json:"overdue_count"`
	CountByStatus  map[PaymentStatus]int `json:"count_by_status"`
}
