package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/readme-readyou/readme-readyou/internal/completion"
	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/prompt"
	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/readme-readyou/readme-readyou/internal/readme/repository"
	"github.com/readme-readyou/readme-readyou/pkg/logger"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads profile data from GitHub.
type Fetcher interface {
	FetchUser(ctx context.Context, handle string) (*github.User, error)
	FetchRepos(ctx context.Context, handle string) ([]github.Repo, error)
}

// Locker hands out short leases shared between replicas.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Result is the outcome of GetOrCreate.
type Result struct {
	Content   string      `json:"content"`
	Mode      readme.Mode `json:"mode"`
	FromCache bool        `json:"fromCache"`
}

// Existing describes the stored README reported by Exists.
type Existing struct {
	Exists    bool
	Content   string
	Mode      readme.Mode
	IsDefault bool
}

// Service orchestrates lookup, generation and persistence of READMEs.
type Service struct {
	store        repository.Store
	fetcher      Fetcher
	completer    completion.Client
	locker       Locker
	baseURL      string
	lockTTL      time.Duration
	pollInterval time.Duration
	flight       singleflight.Group
}

type Option func(*Service)

// WithLocker enables the cross-replica generation lease.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func NewService(store repository.Store, fetcher Fetcher, completer completion.Client, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:        store,
		fetcher:      fetcher,
		completer:    completer,
		baseURL:      cfg.PublicBaseURL,
		lockTTL:      cfg.Generation.LockTTL,
		pollInterval: cfg.Generation.PollInterval,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 90 * time.Second
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 500 * time.Millisecond
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func flightKey(id string, mode readme.Mode) string {
	return id + ":" + string(mode)
}

// GetOrCreate returns the stored README for (identifier, mode), generating and
// persisting it on a miss. Concurrent misses for the same key share one generation.
func (s *Service) GetOrCreate(ctx context.Context, identifier, mode string) (*Result, error) {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, fmt.Errorf("%w: identifier is required", readme.ErrValidation)
	}
	m := readme.ParseMode(mode)

	rec, err := s.store.Find(ctx, id, m)
	if err == nil {
		metrics.CacheHits.WithLabelValues(string(m)).Inc()
		return &Result{Content: rec.Content, Mode: rec.Mode, FromCache: true}, nil
	}
	if !errors.Is(err, readme.ErrNotFound) {
		return nil, storeErr(err)
	}

	// the generation outlives any one caller; each caller waits only as long as its own context
	ch := s.flight.DoChan(flightKey(id, m), func() (interface{}, error) {
		return s.generateOnce(context.WithoutCancel(ctx), id, m)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: caller gave up waiting: %w", readme.ErrGeneration, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			logger.Debugf("generation for %s/%s shared between callers", id, m)
		}
		res := *r.Val.(*Result)
		return &res, nil
	}
}

func (s *Service) generateOnce(ctx context.Context, id string, m readme.Mode) (*Result, error) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, flightKey(id, m), s.lockTTL)
		switch {
		case err != nil:
			logger.Warnf("generation lease for %s/%s unavailable, continuing without it: %v", id, m, err)
		case ok:
			defer release()
		default:
			rec, err := s.waitForRecord(ctx, id, m)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				metrics.CacheHits.WithLabelValues(string(m)).Inc()
				return &Result{Content: rec.Content, Mode: rec.Mode, FromCache: true}, nil
			}
			logger.Warnf("generation lease for %s/%s expired without a result, generating", id, m)
		}
	}

	// the lease wait has its own window; generation gets a fresh budget
	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	// another caller may have finished between our lookup and taking the flight
	if rec, err := s.store.Find(ctx, id, m); err == nil {
		return &Result{Content: rec.Content, Mode: rec.Mode, FromCache: true}, nil
	} else if !errors.Is(err, readme.ErrNotFound) {
		return nil, storeErr(err)
	}

	content, err := s.generate(ctx, id, m)
	if err != nil {
		metrics.Generations.WithLabelValues(string(m), "error").Inc()
		return nil, err
	}
	if err := s.store.Upsert(ctx, &readme.Record{Identifier: id, Mode: m, Content: content}); err != nil {
		metrics.Generations.WithLabelValues(string(m), "error").Inc()
		return nil, storeErr(err)
	}
	metrics.Generations.WithLabelValues(string(m), "ok").Inc()
	logger.Infof("generated %s readme for %s", m, id)
	return &Result{Content: content, Mode: m, FromCache: false}, nil
}

// waitForRecord polls the store while another replica holds the lease. A nil record
// with a nil error means the lease window passed without a result.
func (s *Service) waitForRecord(ctx context.Context, id string, m readme.Mode) (*readme.Record, error) {
	deadline := time.Now().Add(s.lockTTL)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for lease holder: %w", readme.ErrGeneration, ctx.Err())
		case <-ticker.C:
		}
		rec, err := s.store.Find(ctx, id, m)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, readme.ErrNotFound) {
			return nil, storeErr(err)
		}
	}
	return nil, nil
}

func (s *Service) generate(ctx context.Context, id string, m readme.Mode) (string, error) {
	user, err := s.fetcher.FetchUser(ctx, id)
	if err != nil {
		return "", upstreamErr(id, err)
	}
	repos, err := s.fetcher.FetchRepos(ctx, id)
	if err != nil {
		return "", upstreamErr(id, err)
	}

	text, err := s.completer.Complete(ctx, prompt.Build(*user, repos, m))
	if err != nil {
		return "", fmt.Errorf("%w: %v", readme.ErrGeneration, err)
	}
	return withClosing(text, *user, s.baseURL), nil
}

// Exists reports the stored README for identifier after checking the handle on
// GitHub. With an empty mode the default-mode record is preferred, then standard,
// then any mode.
func (s *Service) Exists(ctx context.Context, identifier, mode string) (*Existing, error) {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, fmt.Errorf("%w: identifier is required", readme.ErrValidation)
	}
	if _, err := s.fetcher.FetchUser(ctx, id); err != nil {
		return nil, upstreamErr(id, err)
	}

	def, err := s.store.DefaultMode(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	var rec *readme.Record
	switch {
	case mode != "":
		rec, err = s.store.Find(ctx, id, readme.ParseMode(mode))
	case def != "":
		rec, err = s.store.Find(ctx, id, def)
		if errors.Is(err, readme.ErrNotFound) {
			rec, err = s.store.FindAny(ctx, id)
		}
	default:
		rec, err = s.store.FindAny(ctx, id)
	}
	if errors.Is(err, readme.ErrNotFound) {
		return &Existing{Exists: false}, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &Existing{
		Exists:    true,
		Content:   rec.Content,
		Mode:      rec.Mode,
		IsDefault: def != "" && rec.Mode == def,
	}, nil
}

// Save overwrites the content of (identifier, mode); mode defaults to standard.
// The write is unconditional: last writer wins.
func (s *Service) Save(ctx context.Context, identifier, mode, content string) (*readme.Record, error) {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" || content == "" {
		return nil, fmt.Errorf("%w: identifier and content are required", readme.ErrValidation)
	}
	rec := &readme.Record{Identifier: id, Mode: readme.ParseMode(mode), Content: content}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}

// SetDefault marks mode as the one embedded for identifier.
func (s *Service) SetDefault(ctx context.Context, identifier, mode string) error {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" || mode == "" {
		return fmt.Errorf("%w: identifier and mode are required", readme.ErrValidation)
	}
	if err := s.store.SetDefaultMode(ctx, id, readme.ParseMode(mode)); err != nil {
		if errors.Is(err, readme.ErrNotFound) {
			return err
		}
		return storeErr(err)
	}
	return nil
}

// Profile returns the GitHub profile and recent repositories for identifier,
// without the profile repository itself.
func (s *Service) Profile(ctx context.Context, identifier string) (*github.User, []github.Repo, error) {
	id := readme.NormalizeIdentifier(identifier)
	if id == "" {
		return nil, nil, fmt.Errorf("%w: identifier is required", readme.ErrValidation)
	}
	user, err := s.fetcher.FetchUser(ctx, id)
	if err != nil {
		return nil, nil, upstreamErr(id, err)
	}
	repos, err := s.fetcher.FetchRepos(ctx, id)
	if err != nil {
		return nil, nil, upstreamErr(id, err)
	}
	return user, github.WithoutProfileRepo(id, repos), nil
}

func upstreamErr(id string, err error) error {
	if errors.Is(err, github.ErrNotFound) {
		return fmt.Errorf("%w: github user %q", readme.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %v", readme.ErrUpstream, err)
}

func storeErr(err error) error {
	if errors.Is(err, readme.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %v", readme.ErrStore, err)
}
