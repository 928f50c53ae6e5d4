// internal/services/car_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/apperrors"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

type CarService struct {
	cars store.CarStore
}

type CreateCarRequest struct {
	Title        string              `json:"title" validate:"required,max=100"`
	Make         string              `json:"make" validate:"required,max=50"`
	Model        string              `json:"model" validate:"required,max=50"`
	Year         int                 `json:"year" validate:"required,min=1900,max=2030"`
	Price        float64             `json:"price" validate:"required,gt=0"`
	ImageURL     string              `json:"imageUrl" validate:"required,url"`
	Description  string              `json:"description,omitempty" validate:"max=2000"`
	Mileage      *int                `json:"mileage,omitempty" validate:"omitempty,min=0"`
	FuelType     models.FuelType     `json:"fuelType,omitempty" validate:"omitempty,oneof=petrol diesel hybrid electric other"`
	Transmission models.Transmission `json:"transmission,omitempty" validate:"omitempty,oneof=manual automatic semi-automatic"`
	Color        string              `json:"color,omitempty" validate:"max=30"`
	Features     []string            `json:"features,omitempty"`
	City         string              `json:"city,omitempty" validate:"max=50"`
	District     string              `json:"district,omitempty" validate:"max=50"`
	ContactPhone string              `json:"contactPhone,omitempty" validate:"max=20"`
	ContactEmail string              `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

// UpdateCarRequest uses pointers so absent fields are distinguishable from
// zero values. IsAvailable and Status interact: whatever combination the
// caller sends is normalized through ReconcileStatus before persisting.
type UpdateCarRequest struct {
	Title        *string               `json:"title,omitempty" validate:"omitempty,max=100"`
	Make         *string               `json:"make,omitempty" validate:"omitempty,max=50"`
	Model        *string               `json:"model,omitempty" validate:"omitempty,max=50"`
	Year         *int                  `json:"year,omitempty" validate:"omitempty,min=1900,max=2030"`
	Price        *float64              `json:"price,omitempty" validate:"omitempty,gt=0"`
	ImageURL     *string               `json:"imageUrl,omitempty" validate:"omitempty,url"`
	IsAvailable  *bool                 `json:"isAvailable,omitempty"`
	Status       *models.ListingStatus `json:"status,omitempty" validate:"omitempty,oneof=active pending sold inactive"`
	Description  *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	Mileage      *int                  `json:"mileage,omitempty" validate:"omitempty,min=0"`
	FuelType     *models.FuelType      `json:"fuelType,omitempty" validate:"omitempty,oneof=petrol diesel hybrid electric other"`
	Transmission *models.Transmission  `json:"transmission,omitempty" validate:"omitempty,oneof=manual automatic semi-automatic"`
	Color        *string               `json:"color,omitempty" validate:"omitempty,max=30"`
	Features     []string              `json:"features,omitempty"`
	City         *string               `json:"city,omitempty" validate:"omitempty,max=50"`
	District     *string               `json:"district,omitempty" validate:"omitempty,max=50"`
	ContactPhone *string               `json:"contactPhone,omitempty" validate:"omitempty,max=20"`
	ContactEmail *string               `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

type SetAvailabilityRequest struct {
	IsAvailable bool                  `json:"isAvailable"`
	Status      *models.ListingStatus `json:"status,omitempty" validate:"omitempty,oneof=active pending sold inactive"`
}

func NewCarService(cars store.CarStore) *CarService {
	return &CarService{cars: cars}
}

func (s *CarService) CreateCar(ctx context.Context, creatorID uuid.UUID, req *CreateCarRequest) (*models.CarListing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	car := &models.CarListing{
		Title:        req.Title,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		IsAvailable:  true,
		Status:       models.ListingStatusActive,
		Description:  req.Description,
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Color:        req.Color,
		Features:     pq.StringArray(req.Features),
		City:         req.City,
		District:     req.District,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		CreatedByID:  creatorID,
	}
	if car.FuelType == "" {
		car.FuelType = models.FuelTypePetrol
	}
	if car.Transmission == "" {
		car.Transmission = models.TransmissionManual
	}

	if err := s.cars.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to create car listing: %w", err)
	}
	return car, nil
}

// GetCar fetches a listing and bumps its view counter asynchronously. A failed
// increment is logged and ignored; it must never fail the read.
func (s *CarService) GetCar(ctx context.Context, id uuid.UUID, countView bool) (*models.CarListing, error) {
	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("car listing not found")
		}
		return nil, fmt.Errorf("failed to load car listing: %w", err)
	}

	if countView {
		go func(carID uuid.UUID) {
			if err := s.cars.IncrementViews(context.Background(), carID); err != nil {
				logrus.WithError(err).WithField("car_id", carID).Warn("Failed to increment view count")
			}
		}(car.ID)
		car.Views++
	}
	return car, nil
}

func (s *CarService) UpdateCar(ctx context.Context, id uuid.UUID, req *UpdateCarRequest) (*models.CarListing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("car listing not found")
		}
		return nil, fmt.Errorf("failed to load car listing: %w", err)
	}

	applyCarUpdates(car, req)

	available := car.IsAvailable
	status := car.Status
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	if req.Status != nil {
		status = *req.Status
	}
	car.IsAvailable = available
	car.Status = models.ReconcileStatus(available, status)

	if err := s.cars.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to update car listing: %w", err)
	}
	return car, nil
}

// SetAvailability is the dedicated availability toggle. It routes through the
// same reconciliation as full updates.
func (s *CarService) SetAvailability(ctx context.Context, id uuid.UUID, req *SetAvailabilityRequest) (*models.CarListing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("car listing not found")
		}
		return nil, fmt.Errorf("failed to load car listing: %w", err)
	}

	status := car.Status
	if req.Status != nil {
		status = *req.Status
	}
	car.IsAvailable = req.IsAvailable
	car.Status = models.ReconcileStatus(req.IsAvailable, status)

	if err := s.cars.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to update car availability: %w", err)
	}
	return car, nil
}

// MarkSold flips a listing to sold regardless of any active transaction. Used
// for sales concluded outside the platform.
func (s *CarService) MarkSold(ctx context.Context, id uuid.UUID) (*models.CarListing, error) {
	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("car listing not found")
		}
		return nil, fmt.Errorf("failed to load car listing: %w", err)
	}

	car.IsAvailable = false
	car.Status = models.ReconcileStatus(false, models.ListingStatusActive)

	if err := s.cars.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to mark car as sold: %w", err)
	}
	return car, nil
}

// DeleteCar soft-deletes the listing. Pending transactions on it are cancelled
// by the store in the same database transaction.
func (s *CarService) DeleteCar(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if err := s.cars.Delete(ctx, id, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("car listing not found")
		}
		return fmt.Errorf("failed to delete car listing: %w", err)
	}
	return nil
}

func (s *CarService) SearchCars(ctx context.Context, filter store.CarFilter) ([]models.CarListing, int64, error) {
	return s.cars.List(ctx, filter)
}

func (s *CarService) GetFilterOptions(ctx context.Context) (map[string][]string, error) {
	makes, carModels, err := s.cars.FilterOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load filter options: %w", err)
	}
	return map[string][]string{
		"makes":  makes,
		"models": carModels,
	}, nil
}

func (s *CarService) GetFeaturedCars(ctx context.Context, limit int) ([]models.CarListing, error) {
	if limit <= 0 || limit > 20 {
		limit = 6
	}
	return s.cars.Featured(ctx, limit)
}

func (s *CarService) GetStatistics(ctx context.Context) ([]store.CarStatusStat, error) {
	return s.cars.Stats(ctx)
}

func applyCarUpdates(car *models.CarListing, req *UpdateCarRequest) {
	if req.Title != nil {
		car.Title = *req.Title
	}
	if req.Make != nil {
		car.Make = *req.Make
	}
	if req.Model != nil {
		car.Model = *req.Model
	}
	if req.Year != nil {
		car.Year = *req.Year
	}
	if req.Price != nil {
		car.Price = *req.Price
	}
	if req.ImageURL != nil {
		car.ImageURL = *req.ImageURL
	}
	if req.Description != nil {
		car.Description = *req.Description
	}
	if req.Mileage != nil {
		car.Mileage = req.Mileage
	}
	if req.FuelType != nil {
		car.FuelType = *req.FuelType
	}
	if req.Transmission != nil {
		car.Transmission = *req.Transmission
	}
	if req.Color != nil {
		car.Color = *req.Color
	}
	if req.Features != nil {
		car.Features = pq.StringArray(req.Features)
	}
	if req.City != nil {
		car.City = *req.City
	}
	if req.District != nil {
		car.District = *req.District
	}
	if req.ContactPhone != nil {
		car.ContactPhone = *req.ContactPhone
	}
	if req.ContactEmail != nil {
		car.ContactEmail = *req.ContactEmail
	}
}
