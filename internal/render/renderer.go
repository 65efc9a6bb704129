package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/readme-readyou/readme-readyou/pkg/logger"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
)

// Source is the read side of the README store the renderer needs.
type Source interface {
	Find(ctx context.Context, identifier string, mode readme.Mode) (*readme.Record, error)
	DefaultMode(ctx context.Context, identifier string) (readme.Mode, error)
}

// SnapshotCache stores rendered cards by key. Get returns ok=false on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, svg []byte) error
}

// Renderer resolves the README to embed for an identifier and renders it as an SVG card.
type Renderer struct {
	src   Source
	cache SnapshotCache
}

// NewRenderer returns a Renderer; cache may be nil.
func NewRenderer(src Source, cache SnapshotCache) *Renderer {
	return &Renderer{src: src, cache: cache}
}

// Resolve picks the record to embed: the default mode when set and present, else
// the standard record.
func (r *Renderer) Resolve(ctx context.Context, identifier string) (*readme.Record, error) {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, fmt.Errorf("%w: identifier is required", readme.ErrValidation)
	}
	def, err := r.src.DefaultMode(ctx, id)
	if err != nil {
		return nil, err
	}
	if def != "" && def != readme.ModeStandard {
		rec, err := r.src.Find(ctx, id, def)
		if err == nil && rec.Content != "" {
			return rec, nil
		}
		if err != nil && !errors.Is(err, readme.ErrNotFound) {
			return nil, err
		}
	}
	rec, err := r.src.Find(ctx, id, readme.ModeStandard)
	if err != nil {
		return nil, err
	}
	if rec.Content == "" {
		return nil, fmt.Errorf("%w: empty readme for %q", readme.ErrNotFound, id)
	}
	return rec, nil
}

// Render returns the SVG card for identifier. Errors wrap readme.ErrNotFound when
// there is nothing to embed.
func (r *Renderer) Render(ctx context.Context, identifier string) ([]byte, error) {
	rec, err := r.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, readme.ErrNotFound) {
			metrics.EmbedRenders.WithLabelValues("not_found").Inc()
		} else {
			metrics.EmbedRenders.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	key := snapshotKey(rec)
	if r.cache != nil {
		if svg, ok, err := r.cache.Get(ctx, key); err != nil {
			logger.Warnf("snapshot cache get %s: %v", key, err)
		} else if ok {
			metrics.EmbedRenders.WithLabelValues("snapshot").Inc()
			return svg, nil
		}
	}

	svg, err := Card(rec.Content)
	if err != nil {
		metrics.EmbedRenders.WithLabelValues("error").Inc()
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, key, svg); err != nil {
			logger.Warnf("snapshot cache put %s: %v", key, err)
		}
	}
	metrics.EmbedRenders.WithLabelValues("ok").Inc()
	return svg, nil
}

// snapshotKey is content-addressed so an edited README never hits an old card.
func snapshotKey(rec *readme.Record) string {
	sum := sha256.Sum256([]byte(rec.Content))
	return fmt.Sprintf("cards/%s/%s.svg", rec.Identifier, hex.EncodeToString(sum[:]))
}
