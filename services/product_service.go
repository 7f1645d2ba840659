package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
)

const productCachePrefix = "product:detail:"

// ProductService serves catalog reads through a redis cache. The catalog is
// read-only from this service's perspective; cart and order lines carry
// their own price snapshots, so cached staleness never rewrites history.
type ProductService struct {
	repo  repository.ProductRepository
	cache *redis.Client
	ttl   time.Duration
	sfg   singleflight.Group // collapses concurrent misses for the same product
}

func NewProductService(repo repository.ProductRepository, cache *redis.Client, ttl time.Duration) *ProductService {
	return &ProductService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

func (s *ProductService) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := productCachePrefix + id.Hex()

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		if s.cache != nil {
			data, err := s.cache.Get(ctx, key).Result()
			if err == nil {
				var product models.Product
				if err := json.Unmarshal([]byte(data), &product); err == nil {
					return &product, nil
				}
				zap.L().Warn("Failed to unmarshal cached product", zap.String("key", key))
			} else if !errors.Is(err, redis.Nil) {
				zap.L().Warn("Product cache get failed", zap.Error(err))
			}
		}

		product, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		s.setCacheAsync(key, product)
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

func (s *ProductService) ListProducts(ctx context.Context, category string, page, limit int) ([]models.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, category, page, limit)
}

func (s *ProductService) setCacheAsync(key string, product *models.Product) {
	if s.cache == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(product)
		if err != nil {
			return
		}
		if err := s.cache.Set(bgCtx, key, data, s.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache product", zap.String("key", key), zap.Error(err))
		}
	}()
}
