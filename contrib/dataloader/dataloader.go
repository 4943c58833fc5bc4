// Package dataloader provides generic helpers for loading entities in
// batches: collecting the keys of a result set, issuing one query for all
// of them and distributing the results back by key.
//
//	keys := dataloader.UniqueKeys(categories, func(c model.Model) any { return c.Get("id") })
//	products, _ := loadProductsWhereCategoryIn(ctx, keys)
//	byCategory := dataloader.GroupByKey(products, func(p model.Model) any { return p.Get("id_category") })
//
// A loader value can travel with a request through the context; With and
// For are keyed by type so independent loaders never collide.
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// UniqueKeys returns the distinct keys of values in first-seen order. Keys
// for which skip reports true are left out; pass nil to keep all.
func UniqueKeys[K comparable, V any](values []V, keyFn KeyFunc[K, V], skip func(K) bool) []K {
	seen := make(map[K]struct{}, len(values))
	keys := make([]K, 0, len(values))
	for _, v := range values {
		k := keyFn(v)
		if skip != nil && skip(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function, keeping their order within
// each group. Useful for one-to-many relations where many entities share
// the same foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

type ctxKey[T any] struct{}

// With returns a context carrying v. It replaces any value of the same
// type already present.
func With[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, ctxKey[T]{}, v)
}

// For extracts the value of type T from the context.
func For[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(ctxKey[T]{}).(T)
	return v, ok
}
