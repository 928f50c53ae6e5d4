// internal/models/car_listing_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileStatus(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		status    ListingStatus
		want      ListingStatus
	}{
		{"unavailable active becomes sold", false, ListingStatusActive, ListingStatusSold},
		{"unavailable empty becomes sold", false, "", ListingStatusSold},
		{"unavailable inactive stays inactive", false, ListingStatusInactive, ListingStatusInactive},
		{"unavailable pending stays pending", false, ListingStatusPending, ListingStatusPending},
		{"unavailable sold stays sold", false, ListingStatusSold, ListingStatusSold},
		{"available sold reactivates", true, ListingStatusSold, ListingStatusActive},
		{"available empty becomes active", true, "", ListingStatusActive},
		{"available active stays active", true, ListingStatusActive, ListingStatusActive},
		{"available inactive stays inactive", true, ListingStatusInactive, ListingStatusInactive},
		{"available pending stays pending", true, ListingStatusPending, ListingStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconcileStatus(tt.available, tt.status))
		})
	}
}

func TestPurchasable(t *testing.T) {
	car := &CarListing{IsAvailable: true, Status: ListingStatusActive}
	assert.True(t, car.Purchasable())

	car.IsAvailable = false
	assert.False(t, car.Purchasable())

	car.IsAvailable = true
	car.Status = ListingStatusSold
	assert.False(t, car.Purchasable())
}
