// Package repository keeps the last known quotes in redis so a relaunch can
// price the book before the first fetch comes back
package repository

import (
	"fmt"
	"time"

	"github.com/chucky-1/papertrader/internal/model"
	"github.com/go-redis/cache/v8"

	"context"
)

type Cache struct {
	cache *cache.Cache
}

func NewCache(cache *cache.Cache) *Cache {
	return &Cache{cache: cache}
}

func (c *Cache) Set(quote *model.Quote) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := c.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key(quote.Symbol, quote.Currency),
		Value: quote,
		TTL:   time.Hour * 24,
	})
	if err != nil {
		return err
	}
	return nil
}

func (c *Cache) Get(symbol, currency string) (*model.Quote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var quote model.Quote
	err := c.cache.Get(ctx, key(symbol, currency), &quote)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func key(symbol, currency string) string {
	return fmt.Sprintf("quote:%s:%s", symbol, currency)
}
