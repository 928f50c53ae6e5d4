// internal/store/car_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
)

type GormCarStore struct {
	db *gorm.DB
}

func NewGormCarStore(db *gorm.DB) *GormCarStore {
	return &GormCarStore{db: db}
}

var carSortFields = []string{"created_at", "price", "year", "views"}

func (s *GormCarStore) Create(ctx context.Context, car *models.CarListing) error {
	if err := s.db.WithContext(ctx).Create(car).Error; err != nil {
		return fmt.Errorf("failed to create car listing: %w", err)
	}
	return nil
}

func (s *GormCarStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CarListing, error) {
	var car models.CarListing
	if err := s.db.WithContext(ctx).Preload("CreatedBy").First(&car, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &car, nil
}

func (s *GormCarStore) Update(ctx context.Context, car *models.CarListing) error {
	if err := s.db.WithContext(ctx).Save(car).Error; err != nil {
		return fmt.Errorf("failed to update car listing: %w", err)
	}
	return nil
}

func (s *GormCarStore) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var car models.CarListing
		if err := tx.First(&car, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Cascade pending transactions to cancelled before removing the listing.
		now := time.Now()
		if err := tx.Model(&models.Transaction{}).
			Where("car_id = ? AND status = ?", id, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":              models.TransactionStatusCancelled,
				"cancelled_at":        now,
				"cancelled_by_id":     actorID,
				"cancellation_reason": "car listing removed",
			}).Error; err != nil {
			return fmt.Errorf("failed to cancel referencing transactions: %w", err)
		}

		if err := tx.Delete(&car).Error; err != nil {
			return fmt.Errorf("failed to delete car listing: %w", err)
		}
		return nil
	})
}

func (s *GormCarStore) List(ctx context.Context, filter CarFilter) ([]models.CarListing, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.CarListing{}).Preload("CreatedBy")

	if filter.OnlyPurchasable {
		query = query.Where("is_available = ? AND status = ?", true, models.ListingStatusActive)
	} else if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Make != "" {
		query = query.Where("make ILIKE ?", "%"+filter.Make+"%")
	}
	if filter.Model != "" {
		query = query.Where("model ILIKE ?", "%"+filter.Model+"%")
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(description) LIKE ?",
			searchTerm, searchTerm, searchTerm, searchTerm,
		)
	}
	if filter.MinYear != nil {
		query = query.Where("year >= ?", *filter.MinYear)
	}
	if filter.MaxYear != nil {
		query = query.Where("year <= ?", *filter.MaxYear)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.FuelType != nil {
		query = query.Where("fuel_type = ?", *filter.FuelType)
	}
	if filter.Transmission != nil {
		query = query.Where("transmission = ?", *filter.Transmission)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count car listings: %w", err)
	}

	query = applySort(query, filter.Sort, filter.Order, carSortFields)
	query = applyPagination(query, filter.Page, filter.Limit)

	var cars []models.CarListing
	if err := query.Find(&cars).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch car listings: %w", err)
	}
	return cars, total, nil
}

func (s *GormCarStore) FilterOptions(ctx context.Context) ([]string, []string, error) {
	purchasable := s.db.WithContext(ctx).Model(&models.CarListing{}).
		Where("is_available = ? AND status = ?", true, models.ListingStatusActive)

	var makes []string
	if err := purchasable.Distinct("make").Order("make").Pluck("make", &makes).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch makes: %w", err)
	}

	var carModels []string
	if err := s.db.WithContext(ctx).Model(&models.CarListing{}).
		Where("is_available = ? AND status = ?", true, models.ListingStatusActive).
		Distinct("model").Order("model").Pluck("model", &carModels).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch models: %w", err)
	}
	return makes, carModels, nil
}

func (s *GormCarStore) Featured(ctx context.Context, limit int) ([]models.CarListing, error) {
	var cars []models.CarListing
	if err := s.db.WithContext(ctx).
		Where("is_available = ? AND status = ?", true, models.ListingStatusActive).
		Order("views DESC, created_at DESC").
		Limit(limit).
		Preload("CreatedBy").
		Find(&cars).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch featured cars: %w", err)
	}
	return cars, nil
}

func (s *GormCarStore) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.CarListing{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func (s *GormCarStore) Stats(ctx context.Context) ([]CarStatusStat, error) {
	var stats []CarStatusStat
	if err := s.db.WithContext(ctx).Model(&models.CarListing{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(views), 0) AS total_views, COALESCE(AVG(price), 0) AS average_price").
		Group("status").
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate car stats: %w", err)
	}
	return stats, nil
}

func applySort(db *gorm.DB, sort, order string, allowed []string) *gorm.DB {
	valid := false
	for _, field := range allowed {
		if field == sort {
			valid = true
			break
		}
	}
	if !valid {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	return db.Order(sort + " " + order)
}

func applyPagination(db *gorm.DB, page, limit int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return db.Offset((page - 1) * limit).Limit(limit)
}
