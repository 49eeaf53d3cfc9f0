package record

import (
	"context"
	"errors"
	"fmt"
)

// Tee fans saves out to several stores and loads from the first one
// holding the record.
type Tee []Store

// Save writes rec to every store and joins their errors.
func (t Tee) Save(ctx context.Context, rec *Record) error {
	var errs []error
	for _, s := range t {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load returns the record from the first store that has it. Errors other
// than ErrNotFound stop the search.
func (t Tee) Load(ctx context.Context, id string) (*Record, error) {
	for _, s := range t {
		rec, err := s.Load(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
}
