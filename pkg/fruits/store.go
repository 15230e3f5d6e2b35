package fruits

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fruitstand/fruitstand/pkg/models"
)

// DefaultTopVotedLimit is how many fruits FindTopVoted returns by default.
const DefaultTopVotedLimit = 3

// Store is the persistence contract the service depends on.
type Store interface {
	// ListAll returns every fruit in store order.
	ListAll(ctx context.Context) ([]models.Fruit, error)

	// FindTopVoted returns the most voted fruits, most votes first.
	FindTopVoted(ctx context.Context) ([]models.Fruit, error)

	// FindByID returns the fruit with the given id, or nil when there is none.
	FindByID(ctx context.Context, id uint) (*models.Fruit, error)

	// DeleteBy deletes the fruits whose field equals value and returns how
	// many rows were removed.
	DeleteBy(ctx context.Context, field string, value any) (int64, error)

	// Transaction runs fn against a Store bound to a single transaction. The
	// transaction is committed when fn returns nil and rolled back otherwise.
	Transaction(ctx context.Context, fn func(Store) error) error
}

// GormStore implements Store on a gorm database.
type GormStore struct {
	db            *gorm.DB
	topVotedLimit int
}

// NewGormStore returns a Store backed by db. A non-positive topVotedLimit uses
// DefaultTopVotedLimit.
func NewGormStore(db *gorm.DB, topVotedLimit int) *GormStore {
	if topVotedLimit <= 0 {
		topVotedLimit = DefaultTopVotedLimit
	}
	return &GormStore{db: db, topVotedLimit: topVotedLimit}
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Fruit, error) {
	fruits, err := models.ListFruits(s.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error listing fruits: %w", err)
	}
	return fruits, nil
}

func (s *GormStore) FindTopVoted(ctx context.Context) ([]models.Fruit, error) {
	fruits, err := models.TopVotedFruits(s.db.WithContext(ctx), s.topVotedLimit)
	if err != nil {
		return nil, fmt.Errorf("error finding top voted fruits: %w", err)
	}
	return fruits, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*models.Fruit, error) {
	var f models.Fruit
	if err := f.Get(s.db.WithContext(ctx), id); err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding fruit %d: %w", id, err)
	}
	return &f, nil
}

func (s *GormStore) DeleteBy(ctx context.Context, field string, value any) (int64, error) {
	n, err := models.DeleteFruitsBy(s.db.WithContext(ctx), field, value)
	if err != nil {
		return 0, fmt.Errorf("error deleting fruits by %s: %w", field, err)
	}
	return n, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, topVotedLimit: s.topVotedLimit})
	})
}
