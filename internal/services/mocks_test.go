package services

import (
	"context"

	"github.com/givehub/backend/internal/processor"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProcessor struct {
	mock.Mock
}

func (m *MockPaymentProcessor) Charge(ctx context.Context, params *processor.ChargeParams) (*processor.ChargeResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.ChargeResult), args.Error(1)
}

func (m *MockPaymentProcessor) CreateTransfer(ctx context.Context, params *processor.TransferParams) (*processor.TransferResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.TransferResult), args.Error(1)
}

func (m *MockPaymentProcessor) VerifyWebhook(payload []byte, signature string) (*processor.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Event), args.Error(1)
}
