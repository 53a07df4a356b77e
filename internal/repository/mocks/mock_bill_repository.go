package mocks

import (
	"context"

	"billed/internal/model"
	"billed/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillRepository) FindByID(ctx context.Context, id string) (*model.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillRepository) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.Bill], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Bill]), args.Error(1)
}

func (m *MockBillRepository) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}
