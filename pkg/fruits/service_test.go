package fruits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fruitstand/fruitstand/pkg/faults"
	"github.com/fruitstand/fruitstand/pkg/models"
)

func votes(v int) *int {
	return &v
}

func threeFruits() []models.Fruit {
	return []models.Fruit{
		{ID: 1, Name: "Maçã", VoteCount: votes(5)},
		{ID: 2, Name: "Banana", VoteCount: votes(8)},
		{ID: 3, Name: "Manga", VoteCount: votes(30)},
	}
}

func newTestService(store Store, cfg faults.Config, opts ...faults.Option) *Service {
	logger := hclog.NewNullLogger()
	return NewService(store, faults.New(cfg, logger, opts...), logger)
}

func TestServiceListAll(t *testing.T) {
	t.Run("maps every fruit", func(t *testing.T) {
		store := &mockStore{}
		store.On("ListAll", mock.Anything).Return(threeFruits(), nil).Once()
		svc := newTestService(store, faults.Config{})

		views, err := svc.ListAll(context.Background())
		require.NoError(t, err)

		store.AssertExpectations(t)
		assert.Equal(t, models.ToViews(threeFruits()), views)
	})

	t.Run("store error propagates", func(t *testing.T) {
		store := &mockStore{}
		store.On("ListAll", mock.Anything).Return(nil, errors.New("connection refused"))
		svc := newTestService(store, faults.Config{})

		_, err := svc.ListAll(context.Background())
		assert.EqualError(t, err, "connection refused")
	})

	t.Run("every other call is delayed", func(t *testing.T) {
		store := &mockStore{}
		store.On("ListAll", mock.Anything).Return(threeFruits(), nil)

		var delays int
		svc := newTestService(store, faults.Config{SimulateDelay: true},
			faults.WithSleep(func(time.Duration) { delays++ }))

		for i := 0; i < 3; i++ {
			_, err := svc.ListAll(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, 1, delays)
		store.AssertNumberOfCalls(t, "ListAll", 3)
	})
}

func TestServiceListTopVoted(t *testing.T) {
	t.Run("maps top voted fruits", func(t *testing.T) {
		store := &mockStore{}
		store.On("FindTopVoted", mock.Anything).Return(threeFruits(), nil).Once()
		svc := newTestService(store, faults.Config{})

		views, err := svc.ListTopVoted(context.Background())
		require.NoError(t, err)
		assert.Len(t, views, 3)
		store.AssertExpectations(t)
	})

	t.Run("second call fails when simulating failures", func(t *testing.T) {
		store := &mockStore{}
		store.On("FindTopVoted", mock.Anything).Return(threeFruits(), nil)
		svc := newTestService(store, faults.Config{SimulateFailure: true})

		first, err := svc.ListTopVoted(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, first)

		_, err = svc.ListTopVoted(context.Background())
		assert.ErrorIs(t, err, faults.ErrSimulatedFailure)

		third, err := svc.ListTopVoted(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, third)

		// The failing call never reaches the store.
		store.AssertNumberOfCalls(t, "FindTopVoted", 2)
	})
}

func TestServiceFallbackTopVoted(t *testing.T) {
	svc := newTestService(&mockStore{}, faults.Config{SimulateFailure: true})

	views := svc.FallbackTopVoted()
	require.Len(t, views, 1)
	assert.Equal(t, "Ameixa", views[0].Name)
	assert.Nil(t, views[0].ID)
	assert.Nil(t, views[0].VoteCount)
}

func TestServiceDeleteByID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
	}{
		{name: "existing fruit", affected: 1},
		{name: "missing fruit", affected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			store.On("Transaction", mock.Anything).Return().Once()
			store.On("DeleteBy", mock.Anything, "id", int64(1)).Return(tt.affected, nil).Once()
			svc := newTestService(store, faults.Config{})

			n, err := svc.DeleteByID(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.affected, n)
			store.AssertExpectations(t)
		})
	}

	t.Run("store error aborts", func(t *testing.T) {
		store := &mockStore{}
		store.On("Transaction", mock.Anything).Return()
		store.On("DeleteBy", mock.Anything, "id", int64(7)).Return(int64(0), errors.New("deadlock"))
		svc := newTestService(store, faults.Config{})

		_, err := svc.DeleteByID(context.Background(), 7)
		assert.EqualError(t, err, "deadlock")
	})
}
