// internal/models/car_listing.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CarListing struct {
	BaseModel
	Title        string         `json:"title" gorm:"size:100;not null"`
	Make         string         `json:"make" gorm:"size:50;not null;index:idx_car_listings_make_model"`
	Model        string         `json:"model" gorm:"size:50;not null;index:idx_car_listings_make_model"`
	Year         int            `json:"year" gorm:"not null;index"`
	Price        float64        `json:"price" gorm:"type:decimal(12,2);not null;index"`
	ImageURL     string         `json:"imageUrl" gorm:"size:500;not null"`
	IsAvailable  bool           `json:"isAvailable" gorm:"default:true;index"`
	Status       ListingStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Description  string         `json:"description,omitempty" gorm:"type:text"`
	Mileage      *int           `json:"mileage,omitempty"`
	FuelType     FuelType       `json:"fuelType" gorm:"type:varchar(20);default:'petrol'"`
	Transmission Transmission   `json:"transmission" gorm:"type:varchar(20);default:'manual'"`
	Color        string         `json:"color,omitempty" gorm:"size:30"`
	Features     pq.StringArray `json:"features,omitempty" gorm:"type:text[]"`
	City         string         `json:"city,omitempty" gorm:"size:50"`
	District     string         `json:"district,omitempty" gorm:"size:50"`
	ContactPhone string         `json:"contactPhone,omitempty" gorm:"size:20"`
	ContactEmail string         `json:"contactEmail,omitempty" gorm:"size:255"`
	Views        int64          `json:"views" gorm:"default:0"`
	CreatedByID  uuid.UUID      `json:"createdBy" gorm:"type:uuid;not null;index"`

	// Relationships
	CreatedBy    User          `json:"creator,omitempty" gorm:"foreignKey:CreatedByID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:CarID"`
}

// ReconcileStatus returns the listing status consistent with the availability
// flag. An unavailable listing can never stay active: it becomes sold unless an
// explicit non-active status (e.g. inactive) was supplied. Flipping a sold
// listing back to available reactivates it. Every mutation site that touches
// IsAvailable or Status must route through this function.
func ReconcileStatus(available bool, status ListingStatus) ListingStatus {
	if !available {
		if status == ListingStatusActive || status == "" {
			return ListingStatusSold
		}
		return status
	}
	if status == ListingStatusSold || status == "" {
		return ListingStatusActive
	}
	return status
}

// Purchasable reports whether the listing can accept a new transaction.
func (c *CarListing) Purchasable() bool {
	return c.IsAvailable && c.Status == ListingStatusActive
}
