// internal/services/transaction_service_test.go
package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/apperrors"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

func testPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20}
}

func newTestTransactionService(t *testing.T) (*TransactionService, *store.MemoryCarStore, *store.MemoryTransactionStore) {
	t.Helper()
	cars, txns := store.NewMemoryStores()
	return NewTransactionService(txns, cars), cars, txns
}

func seedCar(t *testing.T, cars *store.MemoryCarStore, price float64) *models.CarListing {
	t.Helper()
	car := &models.CarListing{
		Title:       "Toyota Corolla 2020",
		Make:        "Toyota",
		Model:       "Corolla",
		Year:        2020,
		Price:       price,
		ImageURL:    "https://example.com/corolla.jpg",
		IsAvailable: true,
		Status:      models.ListingStatusActive,
		CreatedByID: uuid.New(),
	}
	require.NoError(t, cars.Create(context.Background(), car))
	return car
}

func TestCreateTransactionSnapshotsAmount(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 4500000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.Equal(t, car.Price, txn.Amount)
	assert.Equal(t, models.PaymentMethodCreditCard, txn.PaymentMethod)
	assert.NotEmpty(t, txn.PaymentDetails.TransactionID)

	// Later price edits must not alter the recorded amount.
	car.Price = 9999999
	require.NoError(t, cars.Update(context.Background(), car))

	reloaded, err := svc.GetTransaction(context.Background(), txn.ID, buyer, false)
	require.NoError(t, err)
	assert.Equal(t, float64(4500000), reloaded.Amount)
}

func TestCreateTransactionCarNotFound(t *testing.T) {
	svc, _, _ := newTestTransactionService(t)

	_, err := svc.CreateTransaction(context.Background(), uuid.New(), &CreateTransactionRequest{CarID: uuid.New()})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateTransactionUnavailableCar(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	car.IsAvailable = false
	car.Status = models.ListingStatusSold
	require.NoError(t, cars.Update(context.Background(), car))

	_, err := svc.CreateTransaction(context.Background(), uuid.New(), &CreateTransactionRequest{CarID: car.ID})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateTransactionDuplicatePending(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	_, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateTransactionDifferentBuyersAllowed(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)

	_, err := svc.CreateTransaction(context.Background(), uuid.New(), &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(context.Background(), uuid.New(), &CreateTransactionRequest{CarID: car.ID})
	assert.NoError(t, err)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestCreateTransactionStoresMetadata(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{
		CarID:    car.ID,
		Metadata: map[string]interface{}{"channel": "mobile_app", "campaign": "aug-clearance"},
	})
	require.NoError(t, err)

	reloaded, err := svc.GetTransaction(context.Background(), txn.ID, buyer, false)
	require.NoError(t, err)
	assert.Equal(t, "mobile_app", reloaded.Metadata["channel"])
	assert.Equal(t, "aug-clearance", reloaded.Metadata["campaign"])
}

func TestCompleteTransaction(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	completed, err := svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, &CompleteTransactionRequest{
		PaymentDetails: &models.PaymentDetails{
			PaymentGateway:       "paycorp",
			GatewayTransactionID: "pg-12345",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "paycorp", completed.PaymentDetails.PaymentGateway)
	assert.Equal(t, "pg-12345", completed.PaymentDetails.GatewayTransactionID)
	// The reference generated at creation survives the merge.
	assert.Equal(t, txn.PaymentDetails.TransactionID, completed.PaymentDetails.TransactionID)

	soldCar, err := cars.GetByID(context.Background(), car.ID)
	require.NoError(t, err)
	assert.False(t, soldCar.IsAvailable)
	assert.Equal(t, models.ListingStatusSold, soldCar.Status)
}

func TestCompleteTransactionTwice(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestConcurrentCompleteSingleWinner(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsInvalidState(err))
		}
	}
	assert.Equal(t, 1, succeeded)

	final, err := svc.GetTransaction(context.Background(), txn.ID, buyer, false)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
}

func TestConcurrentCompleteVersusCancel(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var completeErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, completeErr = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = svc.CancelTransaction(context.Background(), txn.ID, buyer, false, "race")
	}()
	wg.Wait()

	// Exactly one transition lands; the other observes the stale status.
	require.NotEqual(t, completeErr == nil, cancelErr == nil)

	final, err := svc.GetTransaction(context.Background(), txn.ID, buyer, false)
	require.NoError(t, err)

	listing, err := cars.GetByID(context.Background(), car.ID)
	require.NoError(t, err)

	if completeErr == nil {
		assert.True(t, apperrors.IsInvalidState(cancelErr))
		assert.Equal(t, models.TransactionStatusCompleted, final.Status)
		assert.False(t, listing.IsAvailable)
		assert.Equal(t, models.ListingStatusSold, listing.Status)
	} else {
		assert.True(t, apperrors.IsInvalidState(completeErr))
		assert.Equal(t, models.TransactionStatusCancelled, final.Status)
		assert.True(t, listing.IsAvailable)
		assert.Equal(t, models.ListingStatusActive, listing.Status)
	}
}

func TestCompleteTransactionForbiddenActor(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.CompleteTransaction(context.Background(), txn.ID, uuid.New(), false, nil)
	assert.True(t, apperrors.IsForbidden(err))

	// Admins may act on anyone's transaction.
	_, err = svc.CompleteTransaction(context.Background(), txn.ID, uuid.New(), true, nil)
	assert.NoError(t, err)
}

func TestCancelTransactionLeavesListingUntouched(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	cancelled, err := svc.CancelTransaction(context.Background(), txn.ID, buyer, false, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancelledByID)
	assert.Equal(t, buyer, *cancelled.CancelledByID)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)

	listing, err := cars.GetByID(context.Background(), car.ID)
	require.NoError(t, err)
	assert.True(t, listing.IsAvailable)
	assert.Equal(t, models.ListingStatusActive, listing.Status)
}

func TestCancelCompletedTransaction(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	_, err = svc.CancelTransaction(context.Background(), txn.ID, buyer, false, "")
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestProcessRefundDefaultsToFullAmount(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)
	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	refunded, err := svc.ProcessRefund(context.Background(), txn.ID, &RefundRequest{Reason: "vehicle defect"})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, txn.Amount, *refunded.RefundAmount)
	assert.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, "vehicle defect", refunded.RefundReason)

	// Refund does not put the car back on the market.
	listing, err := cars.GetByID(context.Background(), car.ID)
	require.NoError(t, err)
	assert.False(t, listing.IsAvailable)
	assert.Equal(t, models.ListingStatusSold, listing.Status)
}

func TestProcessRefundClampsExcessAmount(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)
	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	refunded, err := svc.ProcessRefund(context.Background(), txn.ID, &RefundRequest{Amount: 99999999, Reason: "overcharge"})
	require.NoError(t, err)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, txn.Amount, *refunded.RefundAmount)
}

func TestProcessRefundPartialAmount(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)
	_, err = svc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	refunded, err := svc.ProcessRefund(context.Background(), txn.ID, &RefundRequest{Amount: 500000, Reason: "partial settlement"})
	require.NoError(t, err)
	require.NotNil(t, refunded.RefundAmount)
	assert.Equal(t, float64(500000), *refunded.RefundAmount)
}

func TestProcessRefundRequiresCompleted(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.ProcessRefund(context.Background(), txn.ID, &RefundRequest{Reason: "too early"})
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestGetTransactionAuthorization(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	txn, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	_, err = svc.GetTransaction(context.Background(), txn.ID, buyer, false)
	assert.NoError(t, err)

	_, err = svc.GetTransaction(context.Background(), txn.ID, uuid.New(), false)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = svc.GetTransaction(context.Background(), txn.ID, uuid.New(), true)
	assert.NoError(t, err)

	_, err = svc.GetTransaction(context.Background(), uuid.New(), buyer, false)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListUserTransactionsAuthorization(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	car := seedCar(t, cars, 3000000)
	buyer := uuid.New()

	_, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	txns, total, err := svc.ListUserTransactions(context.Background(), buyer, buyer, false, nil, testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, txns, 1)

	_, _, err = svc.ListUserTransactions(context.Background(), buyer, uuid.New(), false, nil, testPagination())
	assert.True(t, apperrors.IsForbidden(err))

	_, total, err = svc.ListUserTransactions(context.Background(), buyer, uuid.New(), true, nil, testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestTransactionStatistics(t *testing.T) {
	svc, cars, _ := newTestTransactionService(t)
	buyer := uuid.New()

	first := seedCar(t, cars, 1000000)
	second := seedCar(t, cars, 2000000)
	third := seedCar(t, cars, 3000000)

	txn1, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: first.ID})
	require.NoError(t, err)
	_, err = svc.CompleteTransaction(context.Background(), txn1.ID, buyer, false, nil)
	require.NoError(t, err)

	txn2, err := svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: second.ID})
	require.NoError(t, err)
	_, err = svc.CancelTransaction(context.Background(), txn2.ID, buyer, false, "")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: third.ID})
	require.NoError(t, err)

	stats, err := svc.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, float64(1000000), stats.TotalRevenue)
}
