package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitAvailability string

const (
	UnitAvailable      UnitAvailability = "available"
	UnitComingSoon     UnitAvailability = "coming_soon"
	UnitOccupied       UnitAvailability = "occupied"
	UnitRenewalPending UnitAvailability = "renewal_pending"
	UnitUnlisted       UnitAvailability = "unlisted"
)

// Unit is a leasable space inside a building. Unlisted shares the enum with
// the operational states, so an unlisted unit carries no occupancy state.
type Unit struct {
	Versioned

	ID             uuid.UUID        `json:"id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	BuildingID     uuid.UUID        `json:"building_id"`
	UnitNumber     string           `json:"unit_number"`
	Availability   UnitAvailability `json:"availability"`
	RentAmount     decimal.Decimal  `json:"rent_amount"`
	DepositAmount  decimal.Decimal  `json:"deposit_amount"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (u *Unit) GetID() string {
	return u.ID.String()
}
