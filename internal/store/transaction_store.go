// internal/store/transaction_store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
)

const pgUniqueViolation = "23505"

type GormTransactionStore struct {
	db *gorm.DB
}

func NewGormTransactionStore(db *gorm.DB) *GormTransactionStore {
	return &GormTransactionStore{db: db}
}

func (s *GormTransactionStore) Create(ctx context.Context, txn *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicatePending
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *GormTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).
		Preload("User").Preload("Car").Preload("CancelledBy").
		First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &txn, nil
}

func (s *GormTransactionStore) HasPending(ctx context.Context, userID, carID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND car_id = ? AND status = ?", userID, carID, models.TransactionStatusPending).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check pending transactions: %w", err)
	}
	return count > 0, nil
}

// CompletePending and the listing side effect run in one database transaction
// so a completed purchase can never leave the car available.
func (s *GormTransactionStore) CompletePending(ctx context.Context, txn *models.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":                 models.TransactionStatusCompleted,
				"completed_at":           txn.CompletedAt,
				"payment_reference":      txn.PaymentDetails.TransactionID,
				"payment_gateway":        txn.PaymentDetails.PaymentGateway,
				"gateway_transaction_id": txn.PaymentDetails.GatewayTransactionID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if err := tx.Model(&models.CarListing{}).
			Where("id = ?", txn.CarID).
			Updates(map[string]interface{}{
				"is_available": false,
				"status":       models.ListingStatusSold,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark car as sold: %w", err)
		}
		return nil
	})
}

func (s *GormTransactionStore) CancelPending(ctx context.Context, txn *models.Transaction) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":              models.TransactionStatusCancelled,
			"cancelled_at":        txn.CancelledAt,
			"cancelled_by_id":     txn.CancelledByID,
			"cancellation_reason": txn.CancellationReason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (s *GormTransactionStore) RefundCompleted(ctx context.Context, txn *models.Transaction) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionStatusCompleted).
		Updates(map[string]interface{}{
			"status":        models.TransactionStatusRefunded,
			"refunded_at":   txn.RefundedAt,
			"refund_amount": txn.RefundAmount,
			"refund_reason": txn.RefundReason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to refund transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (s *GormTransactionStore) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Preload("User").Preload("Car")

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.CarID != nil {
		query = query.Where("car_id = ?", *filter.CarID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query = query.Order("created_at DESC")
	query = applyPagination(query, filter.Page, filter.Limit)

	var txns []models.Transaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return txns, total, nil
}

func (s *GormTransactionStore) Stats(ctx context.Context) (*TransactionStats, error) {
	stats := &TransactionStats{}
	model := func() *gorm.DB { return s.db.WithContext(ctx).Model(&models.Transaction{}) }

	if err := model().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	byStatus := map[models.TransactionStatus]*int64{
		models.TransactionStatusPending:   &stats.Pending,
		models.TransactionStatusCompleted: &stats.Completed,
		models.TransactionStatusCancelled: &stats.Cancelled,
		models.TransactionStatusRefunded:  &stats.Refunded,
	}
	for status, dst := range byStatus {
		if err := model().Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s transactions: %w", status, err)
		}
	}

	if err := model().Where("status = ?", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if stats.Completed > 0 {
		stats.AverageRevenue = stats.TotalRevenue / float64(stats.Completed)
	}
	return stats, nil
}
