// internal/services/car_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/apperrors"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
)

func newTestCarService(t *testing.T) (*CarService, *store.MemoryCarStore, *store.MemoryTransactionStore) {
	t.Helper()
	cars, txns := store.NewMemoryStores()
	return NewCarService(cars), cars, txns
}

func validCarRequest() *CreateCarRequest {
	return &CreateCarRequest{
		Title:    "Honda Civic 2019",
		Make:     "Honda",
		Model:    "Civic",
		Year:     2019,
		Price:    5200000,
		ImageURL: "https://example.com/civic.jpg",
	}
}

func TestCreateCarDefaults(t *testing.T) {
	svc, _, _ := newTestCarService(t)

	car, err := svc.CreateCar(context.Background(), uuid.New(), validCarRequest())
	require.NoError(t, err)

	assert.True(t, car.IsAvailable)
	assert.Equal(t, models.ListingStatusActive, car.Status)
	assert.Equal(t, models.FuelTypePetrol, car.FuelType)
	assert.Equal(t, models.TransmissionManual, car.Transmission)
}

func TestCreateCarValidation(t *testing.T) {
	svc, _, _ := newTestCarService(t)

	req := validCarRequest()
	req.Price = 0
	_, err := svc.CreateCar(context.Background(), uuid.New(), req)
	assert.Error(t, err)
}

func TestUpdateCarReconcilesAvailability(t *testing.T) {
	svc, _, _ := newTestCarService(t)
	car, err := svc.CreateCar(context.Background(), uuid.New(), validCarRequest())
	require.NoError(t, err)

	// Dropping availability without an explicit status flips the listing to
	// sold.
	unavailable := false
	updated, err := svc.UpdateCar(context.Background(), car.ID, &UpdateCarRequest{IsAvailable: &unavailable})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, models.ListingStatusSold, updated.Status)

	// Restoring availability reactivates it.
	available := true
	updated, err = svc.UpdateCar(context.Background(), car.ID, &UpdateCarRequest{IsAvailable: &available})
	require.NoError(t, err)
	assert.True(t, updated.IsAvailable)
	assert.Equal(t, models.ListingStatusActive, updated.Status)

	// An explicit non-active status wins over the sold default.
	inactive := models.ListingStatusInactive
	updated, err = svc.UpdateCar(context.Background(), car.ID, &UpdateCarRequest{IsAvailable: &unavailable, Status: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, models.ListingStatusInactive, updated.Status)
}

func TestSetAvailability(t *testing.T) {
	svc, _, _ := newTestCarService(t)
	car, err := svc.CreateCar(context.Background(), uuid.New(), validCarRequest())
	require.NoError(t, err)

	updated, err := svc.SetAvailability(context.Background(), car.ID, &SetAvailabilityRequest{IsAvailable: false})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, updated.Status)

	updated, err = svc.SetAvailability(context.Background(), car.ID, &SetAvailabilityRequest{IsAvailable: true})
	require.NoError(t, err)
	assert.True(t, updated.IsAvailable)
	assert.Equal(t, models.ListingStatusActive, updated.Status)
}

func TestMarkSold(t *testing.T) {
	svc, _, _ := newTestCarService(t)
	car, err := svc.CreateCar(context.Background(), uuid.New(), validCarRequest())
	require.NoError(t, err)

	sold, err := svc.MarkSold(context.Background(), car.ID)
	require.NoError(t, err)
	assert.False(t, sold.IsAvailable)
	assert.Equal(t, models.ListingStatusSold, sold.Status)
	assert.False(t, sold.Purchasable())
}

func TestDeleteCarCancelsPendingTransactions(t *testing.T) {
	svc, cars, txns := newTestCarService(t)
	admin := uuid.New()

	car, err := svc.CreateCar(context.Background(), admin, validCarRequest())
	require.NoError(t, err)

	transactionSvc := NewTransactionService(txns, cars)
	buyer := uuid.New()
	txn, err := transactionSvc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCar(context.Background(), car.ID, admin))

	cancelled, err := txns.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledByID)
	assert.Equal(t, admin, *cancelled.CancelledByID)
	assert.NotEmpty(t, cancelled.CancellationReason)

	_, err = svc.GetCar(context.Background(), car.ID, false)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteCarPreservesCompletedHistory(t *testing.T) {
	svc, cars, txns := newTestCarService(t)
	admin := uuid.New()

	car, err := svc.CreateCar(context.Background(), admin, validCarRequest())
	require.NoError(t, err)

	transactionSvc := NewTransactionService(txns, cars)
	buyer := uuid.New()
	txn, err := transactionSvc.CreateTransaction(context.Background(), buyer, &CreateTransactionRequest{CarID: car.ID})
	require.NoError(t, err)
	_, err = transactionSvc.CompleteTransaction(context.Background(), txn.ID, buyer, false, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCar(context.Background(), car.ID, admin))

	preserved, err := txns.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, preserved.Status)
	assert.NotNil(t, preserved.CompletedAt)
	assert.Nil(t, preserved.CancelledAt)
}

func TestSearchCarsOnlyPurchasable(t *testing.T) {
	svc, _, _ := newTestCarService(t)
	creator := uuid.New()

	active, err := svc.CreateCar(context.Background(), creator, validCarRequest())
	require.NoError(t, err)

	soldReq := validCarRequest()
	soldReq.Title = "Nissan Leaf 2021"
	soldReq.Make = "Nissan"
	soldReq.Model = "Leaf"
	soldCar, err := svc.CreateCar(context.Background(), creator, soldReq)
	require.NoError(t, err)
	_, err = svc.MarkSold(context.Background(), soldCar.ID)
	require.NoError(t, err)

	results, total, err := svc.SearchCars(context.Background(), store.CarFilter{OnlyPurchasable: true, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, active.ID, results[0].ID)

	// An unrestricted search sees both.
	_, total, err = svc.SearchCars(context.Background(), store.CarFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
