// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
)

// Sentinel errors returned by store implementations. The service layer
// translates these into typed API failures.
var (
	ErrNotFound = errors.New("record not found")

	// ErrDuplicatePending is returned by Create when a pending transaction
	// already exists for the same (user, car) pair. Backed by a partial unique
	// index in Postgres so concurrent creates cannot both win.
	ErrDuplicatePending = errors.New("pending transaction already exists for this user and car")

	// ErrStaleStatus is returned by the guarded transition updates when the row
	// no longer holds the expected status. A second concurrent complete or
	// cancel observes this instead of double-applying effects.
	ErrStaleStatus = errors.New("transaction status changed concurrently")
)

type CarFilter struct {
	Make         string
	Model        string
	Search       string
	MinYear      *int
	MaxYear      *int
	MinPrice     *float64
	MaxPrice     *float64
	FuelType     *models.FuelType
	Transmission *models.Transmission
	Status       *models.ListingStatus

	// OnlyPurchasable restricts results to available, active listings. Set for
	// every caller that is not an administrator.
	OnlyPurchasable bool

	Sort  string
	Order string
	Page  int
	Limit int
}

type TransactionFilter struct {
	UserID *uuid.UUID
	CarID  *uuid.UUID
	Status *models.TransactionStatus
	Page   int
	Limit  int
}

type CarStatusStat struct {
	Status       models.ListingStatus `json:"status"`
	Count        int64                `json:"count"`
	TotalViews   int64                `json:"totalViews"`
	AveragePrice float64              `json:"averagePrice"`
}

type TransactionStats struct {
	Total          int64   `json:"totalTransactions"`
	Pending        int64   `json:"pendingTransactions"`
	Completed      int64   `json:"completedTransactions"`
	Cancelled      int64   `json:"cancelledTransactions"`
	Refunded       int64   `json:"refundedTransactions"`
	TotalRevenue   float64 `json:"totalRevenue"`
	AverageRevenue float64 `json:"averageTransactionValue"`
}

// CarStore persists car listings.
type CarStore interface {
	Create(ctx context.Context, car *models.CarListing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CarListing, error)
	Update(ctx context.Context, car *models.CarListing) error

	// Delete soft-deletes the listing and, atomically with it, cancels every
	// pending transaction that references it. Completed and cancelled history
	// is left untouched.
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error

	List(ctx context.Context, filter CarFilter) ([]models.CarListing, int64, error)
	FilterOptions(ctx context.Context) (makes []string, carModels []string, err error)
	Featured(ctx context.Context, limit int) ([]models.CarListing, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) ([]CarStatusStat, error)
}

// TransactionStore persists purchase transactions. Transition methods carry a
// status precondition: they fail with ErrStaleStatus rather than overwriting a
// row another request already moved out of the expected state.
type TransactionStore interface {
	// Create persists a new pending transaction, failing with
	// ErrDuplicatePending when the (user, car) pair already has one.
	Create(ctx context.Context, txn *models.Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	HasPending(ctx context.Context, userID, carID uuid.UUID) (bool, error)

	// CompletePending applies the completed fields of txn to the stored row
	// guarded on status=pending, and marks the referenced listing sold in the
	// same database transaction.
	CompletePending(ctx context.Context, txn *models.Transaction) error

	// CancelPending applies the cancelled fields of txn guarded on
	// status=pending. The listing is not touched.
	CancelPending(ctx context.Context, txn *models.Transaction) error

	// RefundCompleted applies the refunded fields of txn guarded on
	// status=completed. The listing is not touched.
	RefundCompleted(ctx context.Context, txn *models.Transaction) error

	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	Stats(ctx context.Context) (*TransactionStats, error)
}
