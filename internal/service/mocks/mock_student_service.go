package mocks

import (
	"context"

	"regapi/internal/model"
	"regapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockStudentService struct {
	mock.Mock
}

func (m *MockStudentService) Register(ctx context.Context, in *model.StudentInput) (*model.Student, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) Get(ctx context.Context, pid string) (*model.Student, error) {
	args := m.Called(ctx, pid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) List(ctx context.Context, limit, offset int) (*service.StudentListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StudentListResult), args.Error(1)
}

func (m *MockStudentService) Update(ctx context.Context, pid string, in *model.StudentInput) (*model.Student, error) {
	args := m.Called(ctx, pid, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) SyncFiles(ctx context.Context, pid string, files service.FileBundle) (*model.Student, error) {
	args := m.Called(ctx, pid, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) Delete(ctx context.Context, pid string) error {
	args := m.Called(ctx, pid)
	return args.Error(0)
}

func (m *MockStudentService) FileURL(ctx context.Context, pid, slot string) (string, error) {
	args := m.Called(ctx, pid, slot)
	return args.String(0), args.Error(1)
}
