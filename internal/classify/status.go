// Package classify holds the pure decision functions of the reconciliation
// engine: status mapping, availability derivation, renewal detection and
// missing-entity classification. Nothing here touches storage.
package classify

import (
	"strings"

	"leasing-sync/internal/models"
)

// statusKeywords is the ordered keyword list for free-text status mapping.
// First match wins; the order is load-bearing for ambiguous source text
// (e.g. "past due notice" maps to past, not notice) and must stay as-is.
var statusKeywords = []struct {
	keyword string
	status  models.TenancyStatus
}{
	{"current", models.TenancyStatusCurrent},
	{"past", models.TenancyStatusPast},
	{"future", models.TenancyStatusFuture},
	{"notice", models.TenancyStatusNotice},
	{"eviction", models.TenancyStatusEviction},
	{"applicant", models.TenancyStatusApplicant},
	{"denied", models.TenancyStatusDenied},
	{"cancel", models.TenancyStatusCanceled},
}

// MapTenancyStatus maps a free-text status string from the export to the
// canonical tenancy status. Case-insensitive substring match; defaults to
// current when nothing matches or the input is empty.
func MapTenancyStatus(raw string) models.TenancyStatus {
	s := strings.ToLower(raw)
	for _, kw := range statusKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.status
		}
	}
	return models.TenancyStatusCurrent
}

// AvailabilityDerivation is the derived marketing state for a unit given its
// governing tenancy.
type AvailabilityDerivation struct {
	Status               models.AvailabilityStatus
	IsActive             bool
	ClearApplicantFields bool
	FutureTenancyID      string
}

// DeriveAvailability computes availability state from the governing tenancy.
// This is the single source of truth for availability status; no other code
// path may set it. Pass nil when the unit has no effectively active tenancy.
func DeriveAvailability(tenancy *models.Tenancy) AvailabilityDerivation {
	if tenancy == nil {
		return AvailabilityDerivation{Status: models.AvailabilityStatusAvailable, IsActive: true}
	}

	switch tenancy.Status {
	case models.TenancyStatusCurrent:
		return AvailabilityDerivation{Status: models.AvailabilityStatusOccupied, IsActive: false}
	case models.TenancyStatusFuture:
		return AvailabilityDerivation{
			Status:          models.AvailabilityStatusLeased,
			IsActive:        true,
			FutureTenancyID: tenancy.ID,
		}
	case models.TenancyStatusApplicant:
		return AvailabilityDerivation{
			Status:          models.AvailabilityStatusApplied,
			IsActive:        true,
			FutureTenancyID: tenancy.ID,
		}
	case models.TenancyStatusDenied, models.TenancyStatusCanceled:
		return AvailabilityDerivation{
			Status:               models.AvailabilityStatusAvailable,
			IsActive:             true,
			ClearApplicantFields: true,
		}
	default:
		// notice, eviction, past and anything unexpected all market the
		// unit as available again.
		return AvailabilityDerivation{Status: models.AvailabilityStatusAvailable, IsActive: true}
	}
}
