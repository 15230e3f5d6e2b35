package fruits

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/fruitstand/fruitstand/pkg/faults"
	"github.com/fruitstand/fruitstand/pkg/models"
)

// FallbackFruitName is the fruit served when the top-voted list cannot be read.
const FallbackFruitName = "Ameixa"

// Service handles fruit requests. It owns the fault simulator that injects
// latency into ListAll and failures into ListTopVoted.
type Service struct {
	store  Store
	faults *faults.Simulator
	logger hclog.Logger
}

// NewService returns a Service. A nil simulator disables fault injection.
func NewService(store Store, sim *faults.Simulator, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if sim == nil {
		sim = faults.New(faults.Config{}, logger)
	}
	return &Service{
		store:  store,
		faults: sim,
		logger: logger,
	}
}

// ListAll returns every fruit. Every other call is delayed when delay
// simulation is on.
func (s *Service) ListAll(ctx context.Context) ([]models.FruitView, error) {
	s.faults.MaybeDelay()

	fruits, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return models.ToViews(fruits), nil
}

// ListTopVoted returns the most voted fruits. Every other call fails when
// failure simulation is on.
func (s *Service) ListTopVoted(ctx context.Context) ([]models.FruitView, error) {
	s.logger.Trace("listing top voted fruits")

	if err := s.faults.MaybeFail(); err != nil {
		return nil, err
	}

	fruits, err := s.store.FindTopVoted(ctx)
	if err != nil {
		return nil, err
	}
	return models.ToViews(fruits), nil
}

// FallbackTopVoted returns the fixed list served in place of ListTopVoted. It
// does not touch the store.
func (s *Service) FallbackTopVoted() []models.FruitView {
	// Without asking anyone, the plum wins.
	return []models.FruitView{models.ToView(models.Fruit{Name: FallbackFruitName})}
}

// DeleteByID deletes the fruit with the given id in its own transaction and
// returns the number of rows removed. Callers are expected to have checked
// authorization already.
func (s *Service) DeleteByID(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := s.store.Transaction(ctx, func(tx Store) error {
		n, err := tx.DeleteBy(ctx, "id", id)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("deleted fruit", "id", id, "rows", deleted)
	return deleted, nil
}
