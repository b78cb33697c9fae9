package postgres

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/millops/backend/internal/domain"
)

const defaultMockCapacity = 1000

// MockRepository implements domain.DataRepository in memory for testing/demo mode.
// Each table is a bounded ring; the oldest rows are dropped once capacity is reached.
type MockRepository struct {
	mu          sync.RWMutex
	capacity    int
	production  []domain.ProductionRow
	suppliers   []domain.SupplierRow
	assessments []domain.Assessment
	totalOutput float64
}

// NewMockRepository creates a mock repository seeded with demo rows
func NewMockRepository() *MockRepository {
	r := NewEmptyMockRepository(defaultMockCapacity)
	r.seed(time.Now().UTC())
	return r
}

// NewEmptyMockRepository creates an unseeded mock holding at most capacity rows per table
func NewEmptyMockRepository(capacity int) *MockRepository {
	if capacity <= 0 {
		capacity = defaultMockCapacity
	}
	return &MockRepository{capacity: capacity}
}

// seed writes 30 production rows and 9 deliveries ending at now
func (r *MockRepository) seed(now time.Time) {
	machines := []string{"M1", "M2", "M3"}
	for i := 29; i >= 0; i-- {
		m := i % 3
		target := 90.0 + float64(m)*3
		speed := 820.0 + float64(m)*40 + float64(i%5)*10
		temp := 32.0 + float64(m)*1.5 + float64(i%4)*0.5
		downtime := 0.0
		if i%7 == 0 {
			downtime = 1.5
		}
		r.production = append(r.production, domain.ProductionRow{
			Timestamp:       now.Add(-time.Duration(i) * 3 * time.Second),
			MachineID:       machines[m],
			TargetOutput:    target,
			ActualOutput:    target * (0.86 + float64(i%6)*0.02),
			SpeedRPM:        speed,
			DowntimeMinutes: downtime,
			TemperatureC:    temp,
		})
	}
	for _, p := range r.production {
		r.totalOutput += p.ActualOutput
	}

	suppliers := []string{"S1", "S2", "S3"}
	materials := []string{"Cotton", "Yarn", "Dyes"}
	statuses := []string{domain.TransportArrived, domain.TransportInTransit, domain.TransportDelayed}
	for i := 8; i >= 0; i-- {
		expected := now.Truncate(24*time.Hour).AddDate(0, 0, 2+i)
		r.suppliers = append(r.suppliers, domain.SupplierRow{
			Timestamp:            now.Add(-time.Duration(i) * 5 * time.Second),
			SupplierID:           suppliers[i%3],
			MaterialType:         materials[(i/3)%3],
			ExpectedDeliveryDate: expected,
			ActualDeliveryDate:   expected.AddDate(0, 0, i%4-1),
			OrderQuantity:        800 + float64(i)*120,
			ReceivedQuantity:     780 + float64(i)*110,
			PricePerKg:           140 + float64(i)*5,
			TransportationStatus: statuses[i%3],
		})
	}
}

// InsertProduction appends to the production ring
func (r *MockRepository) InsertProduction(ctx context.Context, row domain.ProductionRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.production = appendBounded(r.production, row, r.capacity)
	r.totalOutput += row.ActualOutput
	return nil
}

// InsertSupplier appends to the supplier ring
func (r *MockRepository) InsertSupplier(ctx context.Context, row domain.SupplierRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppliers = appendBounded(r.suppliers, row, r.capacity)
	return nil
}

// RecentProduction returns up to limit rows, newest first
func (r *MockRepository) RecentProduction(ctx context.Context, limit int) ([]domain.ProductionRow, error) {
	if limit < 0 {
		return nil, fmt.Errorf("mock: negative limit %d", limit)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.production, limit), nil
}

// RecentSuppliers returns up to limit rows, newest first
func (r *MockRepository) RecentSuppliers(ctx context.Context, limit int) ([]domain.SupplierRow, error) {
	if limit < 0 {
		return nil, fmt.Errorf("mock: negative limit %d", limit)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.suppliers, limit), nil
}

// TotalOutput returns the all-time output, including rows already evicted from the ring
func (r *MockRepository) TotalOutput(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(math.Round(r.totalOutput)), nil
}

// SaveAssessment keeps the assessment in memory
func (r *MockRepository) SaveAssessment(ctx context.Context, a domain.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessments = appendBounded(r.assessments, a, r.capacity)
	return nil
}

// Assessments returns a copy of the saved assessments, oldest first
func (r *MockRepository) Assessments() []domain.Assessment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Assessment(nil), r.assessments...)
}

// Migrate is a no-op in mock mode
func (r *MockRepository) Migrate(ctx context.Context) error {
	return nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

func appendBounded[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = append(s[:0:0], s[len(s)-capacity:]...)
	}
	return s
}

// newestFirst copies up to limit trailing elements in reverse order
func newestFirst[T any](s []T, limit int) []T {
	n := min(limit, len(s))
	out := make([]T, 0, n)
	for i := len(s) - 1; i >= len(s)-n; i-- {
		out = append(out, s[i])
	}
	return out
}
