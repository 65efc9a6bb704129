package repository

import (
	"context"

	"github.com/readme-readyou/readme-readyou/internal/readme"
)

// Store persists README records keyed by (identifier, mode) plus one profile per
// identifier. Lookups that match nothing return an error wrapping readme.ErrNotFound.
type Store interface {
	Find(ctx context.Context, identifier string, mode readme.Mode) (*readme.Record, error)
	// FindAny returns some record for the identifier, preferring the standard mode.
	FindAny(ctx context.Context, identifier string) (*readme.Record, error)
	// Upsert writes rec.Content for (rec.Identifier, rec.Mode). CreatedAt is kept on
	// update; UpdatedAt is always refreshed. Timestamps are written back to rec.
	Upsert(ctx context.Context, rec *readme.Record) error
	// DefaultMode returns "" when the identifier has no default.
	DefaultMode(ctx context.Context, identifier string) (readme.Mode, error)
	// SetDefaultMode fails with readme.ErrNotFound when the identifier has no records.
	SetDefaultMode(ctx context.Context, identifier string, mode readme.Mode) error
}
