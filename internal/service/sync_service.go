package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SyncService reconciles the external catalog into local storage.
type SyncService interface {
	// SyncAll imports every upstream product, or only those of category when
	// it is not blank, and returns how many were created or updated.
	SyncAll(ctx context.Context, category string) (int, error)
	// SyncOne imports a single upstream product by its external id.
	SyncOne(ctx context.Context, externalID int64) (*domain.Product, error)
}

type syncService struct {
	store   repository.Store
	catalog catalog.Client
	clock   clock.Clock
	metrics *metrics.Collector
	logger  *zap.Logger

	group singleflight.Group
	// mu keeps runs with different keys from interleaving.
	mu sync.Mutex
}

// NewSyncService creates a new instance of SyncService
func NewSyncService(
	store repository.Store,
	client catalog.Client,
	clk clock.Clock,
	collector *metrics.Collector,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		store:   store,
		catalog: client,
		clock:   clk,
		metrics: collector,
		logger:  logger,
	}
}

func (s *syncService) SyncAll(ctx context.Context, category string) (int, error) {
	category = strings.TrimSpace(category)
	v, err := s.run(ctx, "all:"+strings.ToLower(category), func(runCtx context.Context) (interface{}, error) {
		return s.syncAll(runCtx, category)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// run executes fn once for all concurrent callers of key, one key at a time.
// The run is detached from the cancellation of whichever caller started it;
// each caller stops waiting when its own ctx is done.
func (s *syncService) run(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight product sync", zap.String("key", key))
		}
		return res.Val, res.Err
	}
}

func (s *syncService) syncAll(ctx context.Context, category string) (count int, err error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.ObserveSync(count, s.clock.Now().Sub(start), err)
	}()

	records, err := s.catalog.List(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		categories := make(map[string]*domain.Category)
		for i := range records {
			if _, err := s.upsert(ctx, tx, &records[i], categories); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Product sync completed",
		zap.String("category", category),
		zap.Int("upserted", len(records)),
		zap.Duration("took", s.clock.Now().Sub(start)),
	)
	return len(records), nil
}

func (s *syncService) SyncOne(ctx context.Context, externalID int64) (*domain.Product, error) {
	v, err := s.run(ctx, "one:"+strconv.FormatInt(externalID, 10), func(runCtx context.Context) (interface{}, error) {
		return s.syncOne(runCtx, externalID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *syncService) syncOne(ctx context.Context, externalID int64) (product *domain.Product, err error) {
	start := s.clock.Now()
	defer func() {
		upserted := 0
		if err == nil {
			upserted = 1
		}
		s.metrics.ObserveSync(upserted, s.clock.Now().Sub(start), err)
	}()

	record, err := s.catalog.Get(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", externalID, err)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		product, err = s.upsert(ctx, tx, record, make(map[string]*domain.Category))
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// upsert creates or updates the local product for record. Stock is only set
// on creation.
func (s *syncService) upsert(
	ctx context.Context,
	tx repository.Store,
	record *domain.ExternalProduct,
	categories map[string]*domain.Category,
) (*domain.Product, error) {
	if record.Price.IsNegative() {
		return nil, fmt.Errorf("%w: product %d has negative price %s", catalog.ErrUpstream, record.ID, record.Price)
	}

	now := s.clock.Now().UTC()

	category, err := s.resolveCategory(ctx, tx, record.Category, now, categories)
	if err != nil {
		return nil, err
	}

	product, err := tx.Products().FindByExternalID(ctx, record.ID)
	created := false
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		externalID := record.ID
		product = &domain.Product{
			ID:         uuid.New(),
			ExternalID: &externalID,
			Stock:      domain.DefaultSyncedStock,
			CreatedAt:  now,
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("failed to look up product %d: %w", record.ID, err)
	}

	product.Name = record.Title
	product.Description = record.Description
	product.Price = record.Price
	product.ImageURL = record.Image
	product.CategoryID = nil
	product.CategoryName = ""
	if category != nil {
		product.CategoryID = &category.ID
		product.CategoryName = category.Name
	}
	product.UpdatedAt = now

	if created {
		err = tx.Products().Create(ctx, product)
	} else {
		err = tx.Products().Update(ctx, product)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save product %d: %w", record.ID, err)
	}

	return product, nil
}

// resolveCategory finds the category by name ignoring case, creating it when
// missing. A blank name resolves to nil.
func (s *syncService) resolveCategory(
	ctx context.Context,
	tx repository.Store,
	name string,
	now time.Time,
	seen map[string]*domain.Category,
) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	key := strings.ToLower(name)
	if category, ok := seen[key]; ok {
		return category, nil
	}

	category, err := tx.Categories().FindByName(ctx, name)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		category = &domain.Category{ID: uuid.New(), Name: name, CreatedAt: now}
		if err := tx.Categories().Create(ctx, category); err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", name, err)
		}
		s.logger.Info("Created category", zap.String("name", name))
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	seen[key] = category
	return category, nil
}
