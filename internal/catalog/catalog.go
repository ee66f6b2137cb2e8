// Package catalog reads sellable items from the record store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"medeasy/pos/domain"
	"medeasy/pos/internal/pos"
	"medeasy/pos/internal/store"
)

var ErrUnknownProduct = errors.New("unknown product")

// Source is the part of the record store the reader needs.
type Source interface {
	ListSellable(ctx context.Context) ([]domain.CatalogItem, error)
	GetDrug(ctx context.Context, id string) (*domain.Drug, error)
}

type Reader struct {
	src Source
	sfg singleflight.Group
}

func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// ListSellableItems returns in-stock items ordered by name. Concurrent callers
// share one load.
func (r *Reader) ListSellableItems(ctx context.Context) ([]domain.CatalogItem, error) {
	v, err, _ := r.sfg.Do("sellable", func() (interface{}, error) {
		return r.src.ListSellable(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pos.ErrCatalogUnavailable, err)
	}
	shared := v.([]domain.CatalogItem)
	items := make([]domain.CatalogItem, len(shared))
	copy(items, shared)
	return items, nil
}

// Search narrows the sellable list to items whose name or manufacturer
// contains query, ignoring case.
func (r *Reader) Search(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	items, err := r.ListSellableItems(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items, nil
	}
	matched := items[:0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), query) || strings.Contains(strings.ToLower(it.Manufacturer), query) {
			matched = append(matched, it)
		}
	}
	return matched, nil
}

// Item returns a fresh snapshot of one product, whether or not it is in stock.
func (r *Reader) Item(ctx context.Context, id string) (domain.CatalogItem, error) {
	v, err, _ := r.sfg.Do("item:"+id, func() (interface{}, error) {
		return r.src.GetDrug(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("%w: %w", pos.ErrCatalogUnavailable, err)
	}
	return v.(*domain.Drug).CatalogItem(), nil
}
