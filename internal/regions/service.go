// Package regions resolves first-level (UF) and second-level (city) regions
// through the IBGE API, caching results in the store.
package regions

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/giovannicarmo/ecoleta-ui/pkg/ibge"
)

// Cache is the subset of the store used for lookup caching.
type Cache interface {
	GetCachedLookup(ctx context.Context, key string) ([]byte, error)
	SetCachedLookup(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Service lists UF codes and city names.
type Service struct {
	client ibge.Client
	cache  Cache
	ttl    time.Duration
}

// NewService creates a region lookup service. cache may be nil to disable
// caching; ttl <= 0 also disables it.
func NewService(client ibge.Client, cache Cache, ttl time.Duration) *Service {
	return &Service{client: client, cache: cache, ttl: ttl}
}

// States returns the UF codes of every state, collated for pt-BR.
func (s *Service) States(ctx context.Context) ([]string, error) {
	return s.cached(ctx, "ibge:states", func(ctx context.Context) ([]string, error) {
		states, err := s.client.States(ctx)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(states))
		for _, st := range states {
			codes = append(codes, st.Code)
		}
		return codes, nil
	})
}

// Cities returns the names of the cities of uf, collated for pt-BR.
func (s *Service) Cities(ctx context.Context, uf string) ([]string, error) {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if uf == "" {
		return nil, eris.New("regions: state code is required")
	}
	return s.cached(ctx, "ibge:cities:"+uf, func(ctx context.Context) ([]string, error) {
		cities, err := s.client.Cities(ctx, uf)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(cities))
		for _, c := range cities {
			names = append(names, c.Name)
		}
		return names, nil
	})
}

func (s *Service) cached(ctx context.Context, key string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	useCache := s.cache != nil && s.ttl > 0

	if useCache {
		data, err := s.cache.GetCachedLookup(ctx, key)
		if err != nil {
			zap.L().Warn("regions: cache read failed", zap.String("key", key), zap.Error(err))
		} else if data != nil {
			var names []string
			if err := json.Unmarshal(data, &names); err == nil {
				zap.L().Debug("regions: cache hit", zap.String("key", key), zap.Int("count", len(names)))
				return names, nil
			}
			zap.L().Warn("regions: discarding corrupt cache entry", zap.String("key", key))
		}
	}

	names, err := fetch(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: lookup %s", key)
	}
	Sort(names)

	if useCache {
		data, err := json.Marshal(names)
		if err == nil {
			err = s.cache.SetCachedLookup(ctx, key, data, s.ttl)
		}
		if err != nil {
			zap.L().Warn("regions: cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return names, nil
}

// Sort orders names in place using Brazilian Portuguese collation, so that
// accented names ("Águas Formosas") sort next to their unaccented peers.
func Sort(names []string) {
	collate.New(language.BrazilianPortuguese).SortStrings(names)
}
