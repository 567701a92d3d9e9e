package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productCacheKey = "checkout:product:%s:%s"

// CachedProductRepository is a read-through Redis cache in front of a
// ProductRepository. Inventory changes always go to the underlying store and
// invalidate the cached entry afterwards. Cache errors are logged and never
// fail the call.
type CachedProductRepository struct {
	next   domain.ProductRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProductRepository wraps next with a Redis cache
func NewCachedProductRepository(next domain.ProductRepository, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

type cachedProduct struct {
	ID        models.ID    `json:"id"`
	TenantID  models.ID    `json:"tenant_id"`
	Name      string       `json:"name"`
	Inventory int64        `json:"inventory"`
	Price     models.Money `json:"price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Version   int          `json:"version"`
}

func (r *CachedProductRepository) FindByID(ctx context.Context, tenantID, productID models.ID) (*domain.Product, error) {
	key := cacheKey(tenantID, productID)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedProduct
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached.toDomain(), nil
		}
		r.logger.Warn("discarding malformed cached product", zap.String("key", key))
	case err != redis.Nil:
		r.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := r.next.FindByID(ctx, tenantID, productID)
	if err != nil || product == nil {
		return product, err
	}

	if payload, err := json.Marshal(newCachedProduct(product)); err == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return product, nil
}

func (r *CachedProductRepository) Reserve(ctx context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	product, err := r.next.Reserve(ctx, tenantID, productID, quantity)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, tenantID, productID)
	return product, nil
}

func (r *CachedProductRepository) Release(ctx context.Context, tenantID, productID models.ID, quantity int64) (*domain.Product, error) {
	product, err := r.next.Release(ctx, tenantID, productID, quantity)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, tenantID, productID)
	return product, nil
}

func (r *CachedProductRepository) invalidate(ctx context.Context, tenantID, productID models.ID) {
	key := cacheKey(tenantID, productID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("product cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(tenantID, productID models.ID) string {
	return fmt.Sprintf(productCacheKey, tenantID, productID)
}

func newCachedProduct(p *domain.Product) cachedProduct {
	return cachedProduct{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Inventory: p.Inventory,
		Price:     p.Price,
		CreatedAt: p.Timestamps.CreatedAt,
		UpdatedAt: p.Timestamps.UpdatedAt,
		Version:   p.Version.Value,
	}
}

func (c cachedProduct) toDomain() *domain.Product {
	return &domain.Product{
		ID:        c.ID,
		TenantID:  c.TenantID,
		Name:      c.Name,
		Inventory: c.Inventory,
		Price:     c.Price,
		Timestamps: models.Timestamps{
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		Version: models.Version{Value: c.Version},
	}
}
