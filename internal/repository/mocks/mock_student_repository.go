package mocks

import (
	"context"

	"regapi/internal/model"
	"regapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) Create(ctx context.Context, s *model.Student) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStudentRepository) FindByPID(ctx context.Context, pid string) (*model.Student, error) {
	args := m.Called(ctx, pid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Student], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Student]), args.Error(1)
}

func (m *MockStudentRepository) Save(ctx context.Context, s *model.Student) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStudentRepository) Delete(ctx context.Context, pid string, version int) error {
	args := m.Called(ctx, pid, version)
	return args.Error(0)
}
