// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
)

// In-memory store implementations sharing one mutex-guarded state. They honor
// the same contracts as the Postgres stores, including the pending-uniqueness
// and status-precondition guarantees, which makes them usable as test doubles
// under concurrent load.

type memoryState struct {
	mu   sync.Mutex
	cars map[uuid.UUID]models.CarListing
	txns map[uuid.UUID]models.Transaction
}

type MemoryCarStore struct {
	state *memoryState
}

type MemoryTransactionStore struct {
	state *memoryState
}

func NewMemoryStores() (*MemoryCarStore, *MemoryTransactionStore) {
	state := &memoryState{
		cars: make(map[uuid.UUID]models.CarListing),
		txns: make(map[uuid.UUID]models.Transaction),
	}
	return &MemoryCarStore{state: state}, &MemoryTransactionStore{state: state}
}

func (s *MemoryCarStore) Create(ctx context.Context, car *models.CarListing) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if car.ID == uuid.Nil {
		car.ID = uuid.New()
	}
	now := time.Now()
	car.CreatedAt = now
	car.UpdatedAt = now
	s.state.cars[car.ID] = *car
	return nil
}

func (s *MemoryCarStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CarListing, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	car, ok := s.state.cars[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &car, nil
}

func (s *MemoryCarStore) Update(ctx context.Context, car *models.CarListing) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.state.cars[car.ID]; !ok {
		return ErrNotFound
	}
	car.UpdatedAt = time.Now()
	s.state.cars[car.ID] = *car
	return nil
}

func (s *MemoryCarStore) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.state.cars[id]; !ok {
		return ErrNotFound
	}

	now := time.Now()
	for txnID, txn := range s.state.txns {
		if txn.CarID == id && txn.Status == models.TransactionStatusPending {
			txn.Status = models.TransactionStatusCancelled
			txn.CancelledAt = &now
			actor := actorID
			txn.CancelledByID = &actor
			txn.CancellationReason = "car listing removed"
			s.state.txns[txnID] = txn
		}
	}
	delete(s.state.cars, id)
	return nil
}

func (s *MemoryCarStore) List(ctx context.Context, filter CarFilter) ([]models.CarListing, int64, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	var cars []models.CarListing
	for _, car := range s.state.cars {
		if !carMatches(car, filter) {
			continue
		}
		cars = append(cars, car)
	}
	sort.Slice(cars, func(i, j int) bool { return cars[i].CreatedAt.After(cars[j].CreatedAt) })
	return paginate(cars, filter.Page, filter.Limit), int64(len(cars)), nil
}

func carMatches(car models.CarListing, filter CarFilter) bool {
	if filter.OnlyPurchasable && !car.Purchasable() {
		return false
	}
	if !filter.OnlyPurchasable && filter.Status != nil && car.Status != *filter.Status {
		return false
	}
	if filter.Make != "" && !strings.Contains(strings.ToLower(car.Make), strings.ToLower(filter.Make)) {
		return false
	}
	if filter.Model != "" && !strings.Contains(strings.ToLower(car.Model), strings.ToLower(filter.Model)) {
		return false
	}
	if filter.Search != "" {
		haystack := strings.ToLower(car.Title + " " + car.Make + " " + car.Model + " " + car.Description)
		if !strings.Contains(haystack, strings.ToLower(filter.Search)) {
			return false
		}
	}
	if filter.MinYear != nil && car.Year < *filter.MinYear {
		return false
	}
	if filter.MaxYear != nil && car.Year > *filter.MaxYear {
		return false
	}
	if filter.MinPrice != nil && car.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && car.Price > *filter.MaxPrice {
		return false
	}
	if filter.FuelType != nil && car.FuelType != *filter.FuelType {
		return false
	}
	if filter.Transmission != nil && car.Transmission != *filter.Transmission {
		return false
	}
	return true
}

func (s *MemoryCarStore) FilterOptions(ctx context.Context) ([]string, []string, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	makeSet := make(map[string]struct{})
	modelSet := make(map[string]struct{})
	for _, car := range s.state.cars {
		if !car.Purchasable() {
			continue
		}
		makeSet[car.Make] = struct{}{}
		modelSet[car.Model] = struct{}{}
	}
	return sortedKeys(makeSet), sortedKeys(modelSet), nil
}

func (s *MemoryCarStore) Featured(ctx context.Context, limit int) ([]models.CarListing, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	var cars []models.CarListing
	for _, car := range s.state.cars {
		if car.Purchasable() {
			cars = append(cars, car)
		}
	}
	sort.Slice(cars, func(i, j int) bool { return cars[i].Views > cars[j].Views })
	if limit > 0 && len(cars) > limit {
		cars = cars[:limit]
	}
	return cars, nil
}

func (s *MemoryCarStore) IncrementViews(ctx context.Context, id uuid.UUID) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	car, ok := s.state.cars[id]
	if !ok {
		return ErrNotFound
	}
	car.Views++
	s.state.cars[id] = car
	return nil
}

func (s *MemoryCarStore) Stats(ctx context.Context) ([]CarStatusStat, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	grouped := make(map[models.ListingStatus]*CarStatusStat)
	for _, car := range s.state.cars {
		stat, ok := grouped[car.Status]
		if !ok {
			stat = &CarStatusStat{Status: car.Status}
			grouped[car.Status] = stat
		}
		stat.Count++
		stat.TotalViews += car.Views
		stat.AveragePrice += car.Price
	}

	var stats []CarStatusStat
	for _, stat := range grouped {
		stat.AveragePrice /= float64(stat.Count)
		stats = append(stats, *stat)
	}
	return stats, nil
}

func (s *MemoryTransactionStore) Create(ctx context.Context, txn *models.Transaction) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for _, existing := range s.state.txns {
		if existing.UserID == txn.UserID && existing.CarID == txn.CarID &&
			existing.Status == models.TransactionStatusPending {
			return ErrDuplicatePending
		}
	}

	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	s.state.txns[txn.ID] = *txn
	return nil
}

func (s *MemoryTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	txn, ok := s.state.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &txn, nil
}

func (s *MemoryTransactionStore) HasPending(ctx context.Context, userID, carID uuid.UUID) (bool, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for _, txn := range s.state.txns {
		if txn.UserID == userID && txn.CarID == carID && txn.Status == models.TransactionStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryTransactionStore) CompletePending(ctx context.Context, txn *models.Transaction) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	stored, ok := s.state.txns[txn.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != models.TransactionStatusPending {
		return ErrStaleStatus
	}

	stored.Status = models.TransactionStatusCompleted
	stored.CompletedAt = txn.CompletedAt
	stored.PaymentDetails = txn.PaymentDetails
	stored.UpdatedAt = time.Now()
	s.state.txns[txn.ID] = stored

	if car, ok := s.state.cars[txn.CarID]; ok {
		car.IsAvailable = false
		car.Status = models.ListingStatusSold
		s.state.cars[txn.CarID] = car
	}
	return nil
}

func (s *MemoryTransactionStore) CancelPending(ctx context.Context, txn *models.Transaction) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	stored, ok := s.state.txns[txn.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != models.TransactionStatusPending {
		return ErrStaleStatus
	}

	stored.Status = models.TransactionStatusCancelled
	stored.CancelledAt = txn.CancelledAt
	stored.CancelledByID = txn.CancelledByID
	stored.CancellationReason = txn.CancellationReason
	stored.UpdatedAt = time.Now()
	s.state.txns[txn.ID] = stored
	return nil
}

func (s *MemoryTransactionStore) RefundCompleted(ctx context.Context, txn *models.Transaction) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	stored, ok := s.state.txns[txn.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != models.TransactionStatusCompleted {
		return ErrStaleStatus
	}

	stored.Status = models.TransactionStatusRefunded
	stored.RefundedAt = txn.RefundedAt
	stored.RefundAmount = txn.RefundAmount
	stored.RefundReason = txn.RefundReason
	stored.UpdatedAt = time.Now()
	s.state.txns[txn.ID] = stored
	return nil
}

func (s *MemoryTransactionStore) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	var txns []models.Transaction
	for _, txn := range s.state.txns {
		if filter.UserID != nil && txn.UserID != *filter.UserID {
			continue
		}
		if filter.CarID != nil && txn.CarID != *filter.CarID {
			continue
		}
		if filter.Status != nil && txn.Status != *filter.Status {
			continue
		}
		txns = append(txns, txn)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return paginate(txns, filter.Page, filter.Limit), int64(len(txns)), nil
}

func (s *MemoryTransactionStore) Stats(ctx context.Context) (*TransactionStats, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	stats := &TransactionStats{}
	for _, txn := range s.state.txns {
		stats.Total++
		switch txn.Status {
		case models.TransactionStatusPending:
			stats.Pending++
		case models.TransactionStatusCompleted:
			stats.Completed++
			stats.TotalRevenue += txn.Amount
		case models.TransactionStatusCancelled:
			stats.Cancelled++
		case models.TransactionStatusRefunded:
			stats.Refunded++
		}
	}
	if stats.Completed > 0 {
		stats.AverageRevenue = stats.TotalRevenue / float64(stats.Completed)
	}
	return stats, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
