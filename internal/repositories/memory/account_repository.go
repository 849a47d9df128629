package memory

import (
	"context"
	"fmt"
	"sync"

	"vipclub/internal/repositories/interfaces"
)

// AccountRepository keeps balances and points in process. It satisfies both
// interfaces.AccountRepository and interfaces.PointsLedger.
type AccountRepository struct {
	mu       sync.Mutex
	balances map[string]float64
	points   map[string]int64
	spends   []Spend
}

type Spend struct {
	UserID   string
	Amount   int64
	Metadata interfaces.SpendMetadata
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		balances: make(map[string]float64),
		points:   make(map[string]int64),
	}
}

func (r *AccountRepository) SetBalance(userID string, balance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = balance
}

func (r *AccountRepository) SetPoints(userID string, points int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[userID] = points
}

func (r *AccountRepository) GetBalance(ctx context.Context, userID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID], nil
}

func (r *AccountRepository) GetPoints(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.points[userID], nil
}

func (r *AccountRepository) SpendPoints(ctx context.Context, userID string, amount int64, metadata interfaces.SpendMetadata) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("invalid spend amount %d", amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.points[userID] < amount {
		return false, nil
	}
	r.points[userID] -= amount
	r.spends = append(r.spends, Spend{UserID: userID, Amount: amount, Metadata: metadata})
	return true, nil
}

// Spends returns every successful spend in order.
func (r *AccountRepository) Spends() []Spend {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Spend(nil), r.spends...)
}
