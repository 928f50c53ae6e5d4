// internal/services/transaction_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/apperrors"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

// TransactionService drives the purchase lifecycle:
//
//	pending --complete--> completed --refund--> refunded
//	pending --cancel----> cancelled
//
// completed, cancelled, refunded and failed are terminal for the two primary
// operations; only ProcessRefund transitions out of completed. The failed
// status is reserved for payment-gateway callbacks.
type TransactionService struct {
	txns store.TransactionStore
	cars store.CarStore
}

type CreateTransactionRequest struct {
	CarID          uuid.UUID              `json:"carId" validate:"required"`
	PaymentMethod  models.PaymentMethod   `json:"paymentMethod,omitempty" validate:"omitempty,oneof=credit_card debit_card bank_transfer cash other"`
	BillingAddress *models.BillingAddress `json:"billingAddress,omitempty"`
	Notes          string                 `json:"notes,omitempty" validate:"max=500"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type CompleteTransactionRequest struct {
	PaymentDetails *models.PaymentDetails `json:"paymentDetails,omitempty"`
}

type CancelTransactionRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=200"`
}

type RefundRequest struct {
	Amount float64 `json:"amount,omitempty" validate:"omitempty,min=0"`
	Reason string  `json:"reason" validate:"required,max=200"`
}

func NewTransactionService(txns store.TransactionStore, cars store.CarStore) *TransactionService {
	return &TransactionService{
		txns: txns,
		cars: cars,
	}
}

// CreateTransaction opens a pending purchase for an available, active listing.
// The amount is snapshotted from the listing's current price and never
// recomputed afterwards. The listing itself is not mutated here; it is
// reserved implicitly by the at-most-one-pending rule.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID uuid.UUID, req *CreateTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	car, err := s.cars.GetByID(ctx, req.CarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("car listing not found")
		}
		return nil, fmt.Errorf("failed to load car listing: %w", err)
	}

	if !car.Purchasable() {
		return nil, apperrors.Conflict("this car is no longer available for purchase")
	}

	hasPending, err := s.txns.HasPending(ctx, userID, req.CarID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending transactions: %w", err)
	}
	if hasPending {
		return nil, apperrors.Conflict("you already have a pending transaction for this car")
	}

	reference, err := utils.GenerateReference("TXN")
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment reference: %w", err)
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCreditCard
	}

	txn := &models.Transaction{
		UserID:        userID,
		CarID:         req.CarID,
		Amount:        car.Price,
		Status:        models.TransactionStatusPending,
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
		Metadata:      models.JSONB(req.Metadata),
		PaymentDetails: models.PaymentDetails{
			TransactionID: reference,
		},
	}
	if req.BillingAddress != nil {
		txn.BillingAddress = *req.BillingAddress
	}

	if err := s.txns.Create(ctx, txn); err != nil {
		if errors.Is(err, store.ErrDuplicatePending) {
			// A concurrent request won the race; the uniqueness constraint
			// rejected this one.
			return nil, apperrors.Conflict("you already have a pending transaction for this car")
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return txn, nil
}

// CompleteTransaction moves a pending transaction to completed and marks the
// car sold. Both mutations are applied by the store in a single database
// transaction so neither can land without the other.
func (s *TransactionService) CompleteTransaction(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isAdmin bool, req *CompleteTransactionRequest) (*models.Transaction, error) {
	txn, err := s.getAuthorized(ctx, id, actorID, isAdmin, "complete")
	if err != nil {
		return nil, err
	}

	if !txn.IsPending() {
		return nil, apperrors.InvalidState("transaction is not in pending status")
	}

	now := time.Now()
	txn.CompletedAt = &now
	if req != nil && req.PaymentDetails != nil {
		mergePaymentDetails(&txn.PaymentDetails, req.PaymentDetails)
	}

	if err := s.txns.CompletePending(ctx, txn); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, apperrors.InvalidState("transaction is not in pending status")
		}
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}

	return s.reload(ctx, id)
}

// CancelTransaction moves a pending transaction to cancelled and records the
// cancelling actor and reason. The listing stays available; no purchase
// happened.
func (s *TransactionService) CancelTransaction(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isAdmin bool, reason string) (*models.Transaction, error) {
	txn, err := s.getAuthorized(ctx, id, actorID, isAdmin, "cancel")
	if err != nil {
		return nil, err
	}

	if !txn.IsPending() {
		return nil, apperrors.InvalidState("transaction is not in pending status")
	}

	now := time.Now()
	txn.CancelledAt = &now
	txn.CancelledByID = &actorID
	txn.CancellationReason = reason

	if err := s.txns.CancelPending(ctx, txn); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, apperrors.InvalidState("transaction is not in pending status")
		}
		return nil, fmt.Errorf("failed to cancel transaction: %w", err)
	}

	return s.reload(ctx, id)
}

// ProcessRefund moves a completed transaction to refunded. The listing's
// availability is deliberately left untouched; putting a refunded car back on
// the market is a manual administrative decision.
func (s *TransactionService) ProcessRefund(ctx context.Context, id uuid.UUID, req *RefundRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("transaction not found")
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if txn.Status != models.TransactionStatusCompleted {
		return nil, apperrors.InvalidState("can only refund completed transactions")
	}

	refundAmount := req.Amount
	if refundAmount <= 0 || refundAmount > txn.Amount {
		refundAmount = txn.Amount
	}

	now := time.Now()
	txn.RefundedAt = &now
	txn.RefundAmount = &refundAmount
	txn.RefundReason = req.Reason

	if err := s.txns.RefundCompleted(ctx, txn); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, apperrors.InvalidState("can only refund completed transactions")
		}
		return nil, fmt.Errorf("failed to refund transaction: %w", err)
	}

	return s.reload(ctx, id)
}

func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isAdmin bool) (*models.Transaction, error) {
	return s.getAuthorized(ctx, id, actorID, isAdmin, "access")
}

func (s *TransactionService) ListUserTransactions(ctx context.Context, userID uuid.UUID, actorID uuid.UUID, isAdmin bool, status *models.TransactionStatus, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	if userID != actorID && !isAdmin {
		return nil, 0, apperrors.Forbidden("not authorized to access these transactions")
	}

	return s.txns.List(ctx, store.TransactionFilter{
		UserID: &userID,
		Status: status,
		Page:   params.Page,
		Limit:  params.Limit,
	})
}

func (s *TransactionService) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, int64, error) {
	return s.txns.List(ctx, filter)
}

func (s *TransactionService) GetStatistics(ctx context.Context) (*store.TransactionStats, error) {
	return s.txns.Stats(ctx)
}

func (s *TransactionService) getAuthorized(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isAdmin bool, action string) (*models.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("transaction not found")
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if txn.UserID != actorID && !isAdmin {
		return nil, apperrors.Forbidden("not authorized to " + action + " this transaction")
	}
	return txn, nil
}

func (s *TransactionService) reload(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload transaction: %w", err)
	}
	return txn, nil
}

// mergePaymentDetails overlays gateway metadata supplied on completion without
// discarding the reference generated at creation time.
func mergePaymentDetails(dst *models.PaymentDetails, src *models.PaymentDetails) {
	if src.TransactionID != "" {
		dst.TransactionID = src.TransactionID
	}
	if src.PaymentGateway != "" {
		dst.PaymentGateway = src.PaymentGateway
	}
	if src.GatewayTransactionID != "" {
		dst.GatewayTransactionID = src.GatewayTransactionID
	}
}
