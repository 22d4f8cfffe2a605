package orgs

import (
	"time"

	"github.com/google/uuid"
)

// OrgType classifies an organization
type OrgType string

const (
	OrgTypeResidential OrgType = "residential"
	OrgTypeCommercial  OrgType = "commercial"
	OrgTypeMixedUse    OrgType = "mixed_use"
)

// OrgTypeInfo describes an organization type for display
type OrgTypeInfo struct {
	Value       OrgType `json:"value"`
	DisplayName string  `json:"display_name"`
}

// OrgTypes returns the organization types in display order
func OrgTypes() []OrgTypeInfo {
	return []OrgTypeInfo{
		{Value: OrgTypeResidential, DisplayName: "Residential"},
		{Value: OrgTypeCommercial, DisplayName: "Commercial"},
		{Value: OrgTypeMixedUse, DisplayName: "Mixed use"},
	}
}

// Organization represents a tenant
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      OrgType   `json:"type"`
	IsFrozen  bool      `json:"is_frozen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackageStatus is the commercial state of a seat package
type PackageStatus string

const (
	PackageStatusActive   PackageStatus = "active"
	PackageStatusExpired  PackageStatus = "expired"
	PackageStatusCanceled PackageStatus = "canceled"
)

// SeatPackage grants SeatLimit seats for a validity window. Nil bounds are
// open-ended.
type SeatPackage struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	SeatLimit      int           `json:"seat_limit"`
	ValidFrom      *time.Time    `json:"valid_from,omitempty"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	Status         PackageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ActiveAt reports whether the package contributes seats at t: its status
// is active and ValidFrom <= t < ValidUntil.
func (p *SeatPackage) ActiveAt(t time.Time) bool {
	if p.Status != PackageStatusActive {
		return false
	}
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && !t.Before(*p.ValidUntil) {
		return false
	}
	return true
}

// Seat is one unit of occupied capacity
type Seat struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	OccupantID     uuid.UUID `json:"occupant_id"`
	Label          string    `json:"label"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateSeatRequest is the untrusted payload for a new seat
type CreateSeatRequest struct {
	OccupantID string `json:"occupant_id"`
	Label      string `json:"label"`
}

// SeatUsage summarizes an organization's capacity
type SeatUsage struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	SeatCount      int            `json:"seat_count"`
	EffectiveLimit int            `json:"effective_limit"`
	Available      int            `json:"available"`
	OverCapacity   bool           `json:"over_capacity"`
	IsFrozen       bool           `json:"is_frozen"`
	Packages       []*SeatPackage `json:"packages"`
}
