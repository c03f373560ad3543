package cmd

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Bitlatte/spacetraveling/internal/cache"
	"github.com/Bitlatte/spacetraveling/internal/config"
	"github.com/Bitlatte/spacetraveling/internal/page"
	"github.com/Bitlatte/spacetraveling/internal/postgres"
	"github.com/Bitlatte/spacetraveling/internal/prismic"
)

// openDocumentClient builds the document backend selected by source.driver.
// The returned func releases it.
func openDocumentClient(ctx context.Context, cfg config.Config) (page.DocumentClient, func(), error) {
	if err := cfg.RequireSource(); err != nil {
		return nil, nil, err
	}
	switch cfg.Source.Driver {
	case "postgres":
		src, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres source: %w", err)
		}
		return src, src.Close, nil
	default:
		return prismic.NewClient(cfg.Prismic.Endpoint, cfg.Prismic.AccessToken), func() {}, nil
	}
}

func newController(client page.DocumentClient, cfg config.Config) *page.Controller {
	return page.New(client,
		page.WithDocumentType(cfg.DocumentType),
		page.WithLocale(cfg.Locale),
		page.WithListingSize(cfg.Listing.PageSize),
		page.WithPrerenderSize(cfg.Prerender.PageSize),
	)
}

// openPageStore builds the page cache selected by cache.driver.
func openPageStore(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	if cfg.Cache.Driver != "redis" {
		return cache.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	// Keep entries past the window so a failed regeneration can fall back.
	store := cache.NewRedisStore(client, "spacetraveling:"+cfg.DocumentType+":", 2*cfg.Revalidate)
	return store, func() { client.Close() }, nil
}
