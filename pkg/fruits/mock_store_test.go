package fruits

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fruitstand/fruitstand/pkg/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListAll(ctx context.Context) ([]models.Fruit, error) {
	args := m.Called(ctx)
	fruits, _ := args.Get(0).([]models.Fruit)
	return fruits, args.Error(1)
}

func (m *mockStore) FindTopVoted(ctx context.Context) ([]models.Fruit, error) {
	args := m.Called(ctx)
	fruits, _ := args.Get(0).([]models.Fruit)
	return fruits, args.Error(1)
}

func (m *mockStore) FindByID(ctx context.Context, id uint) (*models.Fruit, error) {
	args := m.Called(ctx, id)
	f, _ := args.Get(0).(*models.Fruit)
	return f, args.Error(1)
}

func (m *mockStore) DeleteBy(ctx context.Context, field string, value any) (int64, error) {
	args := m.Called(ctx, field, value)
	return args.Get(0).(int64), args.Error(1)
}

// Transaction runs fn against the mock itself.
func (m *mockStore) Transaction(ctx context.Context, fn func(Store) error) error {
	m.Called(ctx)
	return fn(m)
}
