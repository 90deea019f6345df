package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultOrganizationTimeZone = "America/New_York"

// Organization is the tenant boundary for every leasing and billing row.
type Organization struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BillingEmail string    `json:"billing_email"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	TimeZone     string    `json:"time_zone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Location falls back to the default zone when the stored one is unknown.
func (o *Organization) Location() *time.Location {
	if loc, err := time.LoadLocation(o.TimeZone); err == nil && o.TimeZone != "" {
		return loc
	}
	loc, err := time.LoadLocation(DefaultOrganizationTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Building struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Address        *string   `json:"address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
