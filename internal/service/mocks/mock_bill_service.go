package mocks

import (
	"context"
	"io"

	"billed/internal/model"
	"billed/internal/service"
	"billed/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockBillService struct {
	mock.Mock
}

func (m *MockBillService) List(ctx context.Context, email string, limit, offset int) (*service.BillListResult, error) {
	args := m.Called(ctx, email, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BillListResult), args.Error(1)
}

func (m *MockBillService) Get(ctx context.Context, id string) (*model.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillService) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillService) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	args := m.Called(ctx, bill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillService) Upload(ctx context.Context, r io.Reader, email, originalFilename, contentType string, size int64) (*model.UploadedFile, error) {
	args := m.Called(ctx, r, email, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadedFile), args.Error(1)
}

func (m *MockBillService) OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockBillService) FileLink(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}
