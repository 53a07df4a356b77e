package mocks

import (
	"context"

	"billed/internal/model"
	"billed/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context) ([]model.Bill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockStore) Upload(ctx context.Context, email string, file store.FileSelection) (*model.UploadedFile, error) {
	args := m.Called(ctx, email, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedFile), args.Error(1)
}
