package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type ChargeRequest struct {
	PaymentID       string
	BookingID       string
	Amount          float64
	Currency        string
	Method          models.PaymentMethod
	PaymentMethodID string
}

// ChargeResult is the gateway outcome. Status is PAID or FAILED.
type ChargeResult struct {
	Status      models.PaymentStatus
	ExternalRef string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// MockGateway approves charges except for a random FailureRate share.
type MockGateway struct {
	FailureRate float64

	mu   sync.Mutex
	rand *rand.Rand
}

func NewMockGateway(failureRate float64) *MockGateway {
	return &MockGateway{
		FailureRate: failureRate,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *MockGateway) Charge(_ context.Context, _ ChargeRequest) (*ChargeResult, error) {
	g.mu.Lock()
	roll := g.rand.Float64()
	g.mu.Unlock()

	status := models.PaymentPaid
	if roll < g.FailureRate {
		status = models.PaymentFailed
	}
	return &ChargeResult{Status: status, ExternalRef: utils.GeneratePaymentRef()}, nil
}
