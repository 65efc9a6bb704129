package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/readme-readyou/readme-readyou/internal/config"
	"github.com/readme-readyou/readme-readyou/internal/github"
	"github.com/readme-readyou/readme-readyou/internal/lock"
	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/readme-readyou/readme-readyou/internal/readme/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	user      *github.User
	repos     []github.Repo
	err       error
	latency   time.Duration
	userCalls atomic.Int32
}

// roundTrip behaves like an HTTP call: it takes latency and honours ctx.
func (f *fakeFetcher) roundTrip(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.latency == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.latency):
		return nil
	}
}

func (f *fakeFetcher) FetchUser(ctx context.Context, handle string) (*github.User, error) {
	f.userCalls.Add(1)
	if err := f.roundTrip(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	return &u, nil
}

func (f *fakeFetcher) FetchRepos(ctx context.Context, _ string) ([]github.Repo, error) {
	if err := f.roundTrip(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.repos, nil
}

type fakeCompleter struct {
	text    string
	err     error
	gate    chan struct{}
	prompts []string
	mu      sync.Mutex
	calls   atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.text, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		PublicBaseURL: "https://example.com",
		Generation:    config.GenerationConfig{LockTTL: 2 * time.Second, PollInterval: 10 * time.Millisecond},
	}
}

func octocat() *github.User {
	return &github.User{Login: "octocat", Name: "The Octocat"}
}

func TestGetOrCreate_CacheHitSkipsUpstream(t *testing.T) {
	store := repository.NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &readme.Record{Identifier: "octocat", Mode: readme.ModeMinimal, Content: "stored"}))

	f := &fakeFetcher{user: octocat()}
	c := &fakeCompleter{text: "fresh"}
	svc := NewService(store, f, c, testConfig())

	res, err := svc.GetOrCreate(ctx, "Octocat", "minimal")
	require.NoError(t, err)
	assert.Equal(t, "stored", res.Content)
	assert.Equal(t, readme.ModeMinimal, res.Mode)
	assert.True(t, res.FromCache)
	assert.Zero(t, f.userCalls.Load())
	assert.Zero(t, c.calls.Load())
}

func TestGetOrCreate_GeneratesWithFooter(t *testing.T) {
	store := repository.NewMemoryRepo()
	f := &fakeFetcher{user: octocat()}
	c := &fakeCompleter{text: "# Hi"}
	svc := NewService(store, f, c, testConfig())
	ctx := context.Background()

	res, err := svc.GetOrCreate(ctx, "octocat", "minimal")
	require.NoError(t, err)
	want := "# Hi\n\n## Connect with me\n\n" +
		"I'm a bit shy on social media, but feel free to check out my repositories!" +
		"\n\n---\n\nWant your own funny README? Check out [ReadMe ReadYou](https://example.com)!"
	assert.Equal(t, want, res.Content)
	assert.Equal(t, readme.ModeMinimal, res.Mode)
	assert.False(t, res.FromCache)

	stored, err := store.Find(ctx, "octocat", readme.ModeMinimal)
	require.NoError(t, err)
	assert.Equal(t, want, stored.Content)

	// second call is served from the store
	again, err := svc.GetOrCreate(ctx, "octocat", "minimal")
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, want, again.Content)
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestGetOrCreate_ConnectLines(t *testing.T) {
	u := octocat()
	u.Blog = "https://github.blog"
	u.TwitterUsername = "github"
	u.Company = "@github"
	u.Email = "octo@example.com"
	svc := NewService(repository.NewMemoryRepo(), &fakeFetcher{user: u}, &fakeCompleter{text: "body"}, testConfig())

	res, err := svc.GetOrCreate(context.Background(), "octocat", "")
	require.NoError(t, err)
	assert.Equal(t, readme.ModeStandard, res.Mode)
	assert.Contains(t, res.Content, "## Connect with me\n\n"+
		"🌐 Website: [https://github.blog](https://github.blog)\n"+
		"🐦 Twitter: [@github](https://twitter.com/github)\n"+
		"💼 Company: @github\n"+
		"📧 Email: octo@example.com\n\n---")
	assert.NotContains(t, res.Content, "shy on social media")
}

func TestGetOrCreate_UnknownUser(t *testing.T) {
	for _, mode := range []string{"", "standard", "minimal", "detailed", "creative"} {
		store := repository.NewMemoryRepo()
		c := &fakeCompleter{text: "x"}
		svc := NewService(store, &fakeFetcher{err: github.ErrNotFound}, c, testConfig())

		_, err := svc.GetOrCreate(context.Background(), "nobody", mode)
		require.ErrorIs(t, err, readme.ErrNotFound, "mode %q", mode)
		assert.Zero(t, c.calls.Load())
		_, err = store.FindAny(context.Background(), "nobody")
		assert.ErrorIs(t, err, readme.ErrNotFound)
	}
}

func TestGetOrCreate_ErrorKinds(t *testing.T) {
	ctx := context.Background()

	svc := NewService(repository.NewMemoryRepo(), &fakeFetcher{err: errors.New("boom")}, &fakeCompleter{}, testConfig())
	_, err := svc.GetOrCreate(ctx, "octocat", "")
	assert.ErrorIs(t, err, readme.ErrUpstream)

	store := repository.NewMemoryRepo()
	svc = NewService(store, &fakeFetcher{user: octocat()}, &fakeCompleter{err: errors.New("no choices")}, testConfig())
	_, err = svc.GetOrCreate(ctx, "octocat", "")
	assert.ErrorIs(t, err, readme.ErrGeneration)
	_, err = store.Find(ctx, "octocat", readme.ModeStandard)
	assert.ErrorIs(t, err, readme.ErrNotFound, "failed generation must not persist")

	_, err = svc.GetOrCreate(ctx, "  ", "")
	assert.ErrorIs(t, err, readme.ErrValidation)
}

func TestGetOrCreate_ConcurrentCallersShareGeneration(t *testing.T) {
	store := repository.NewMemoryRepo()
	f := &fakeFetcher{user: octocat()}
	c := &fakeCompleter{text: "# Shared", gate: make(chan struct{})}
	svc := NewService(store, f, c, testConfig())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrCreate(context.Background(), "octocat", "creative")
		}(i)
	}

	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(c.gate)
	wg.Wait()

	assert.Equal(t, int32(1), c.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Contains(t, results[i].Content, "# Shared")
	}
}

func newRedisLocker(t *testing.T) *lock.Redis {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return lock.NewRedis(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
}

func TestGetOrCreate_WaitsForLeaseHolder(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()

	// another replica is generating
	_, ok, err := locker.Acquire(ctx, "octocat:standard", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	store := repository.NewMemoryRepo()
	c := &fakeCompleter{text: "local"}
	svc := NewService(store, &fakeFetcher{user: octocat()}, c, testConfig(), WithLocker(locker))

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = store.Upsert(ctx, &readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "remote"})
	}()

	res, err := svc.GetOrCreate(ctx, "octocat", "standard")
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Content)
	assert.True(t, res.FromCache)
	assert.Zero(t, c.calls.Load())
}

func TestGetOrCreate_GeneratesAfterLeaseWindow(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()
	_, ok, err := locker.Acquire(ctx, "octocat:detailed", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	cfg := testConfig()
	cfg.Generation.LockTTL = 100 * time.Millisecond
	c := &fakeCompleter{text: "local"}
	f := &fakeFetcher{user: octocat(), latency: 20 * time.Millisecond}
	store := repository.NewMemoryRepo()
	svc := NewService(store, f, c, cfg, WithLocker(locker))

	res, err := svc.GetOrCreate(ctx, "octocat", "detailed")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Contains(t, res.Content, "local")
	assert.Equal(t, int32(1), c.calls.Load())

	_, err = store.Find(ctx, "octocat", readme.ModeDetailed)
	require.NoError(t, err)
}

func TestGetOrCreate_CancelledCallerLeavesGenerationRunning(t *testing.T) {
	store := repository.NewMemoryRepo()
	c := &fakeCompleter{text: "# Later", gate: make(chan struct{})}
	svc := NewService(store, &fakeFetcher{user: octocat()}, c, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetOrCreate(ctx, "octocat", "minimal")
		done <- err
	}()

	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, readme.ErrGeneration)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still blocked on the shared generation")
	}

	close(c.gate)
	require.Eventually(t, func() bool {
		rec, err := store.Find(context.Background(), "octocat", readme.ModeMinimal)
		return err == nil && rec.Content != ""
	}, time.Second, 5*time.Millisecond)
}

func TestGetOrCreate_ReleasesLease(t *testing.T) {
	locker := newRedisLocker(t)
	ctx := context.Background()
	svc := NewService(repository.NewMemoryRepo(), &fakeFetcher{user: octocat()}, &fakeCompleter{text: "x"}, testConfig(), WithLocker(locker))

	_, err := svc.GetOrCreate(ctx, "octocat", "minimal")
	require.NoError(t, err)

	_, ok, err := locker.Acquire(ctx, "octocat:minimal", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepo()
	svc := NewService(store, &fakeFetcher{user: octocat()}, &fakeCompleter{}, testConfig())

	got, err := svc.Exists(ctx, "octocat", "")
	require.NoError(t, err)
	assert.False(t, got.Exists)

	require.NoError(t, store.Upsert(ctx, &readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "std"}))
	require.NoError(t, store.Upsert(ctx, &readme.Record{Identifier: "octocat", Mode: readme.ModeCreative, Content: "fun"}))

	got, err = svc.Exists(ctx, "octocat", "")
	require.NoError(t, err)
	assert.True(t, got.Exists)
	assert.Equal(t, "std", got.Content)
	assert.False(t, got.IsDefault)

	require.NoError(t, svc.SetDefault(ctx, "octocat", "creative"))
	got, err = svc.Exists(ctx, "octocat", "")
	require.NoError(t, err)
	assert.Equal(t, "fun", got.Content)
	assert.Equal(t, readme.ModeCreative, got.Mode)
	assert.True(t, got.IsDefault)

	got, err = svc.Exists(ctx, "octocat", "minimal")
	require.NoError(t, err)
	assert.False(t, got.Exists)

	svc = NewService(store, &fakeFetcher{err: github.ErrNotFound}, &fakeCompleter{}, testConfig())
	_, err = svc.Exists(ctx, "ghost", "")
	assert.ErrorIs(t, err, readme.ErrNotFound)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepo()
	svc := NewService(store, &fakeFetcher{user: octocat()}, &fakeCompleter{}, testConfig())

	first, err := svc.Save(ctx, "Octocat", "", "v1")
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.Identifier)
	assert.Equal(t, readme.ModeStandard, first.Mode)

	second, err := svc.Save(ctx, "Octocat", "", "edited")
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	got, err := store.Find(ctx, "octocat", readme.ModeStandard)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	_, err = svc.Save(ctx, "octocat", "", "")
	assert.ErrorIs(t, err, readme.ErrValidation)
	_, err = svc.Save(ctx, "", "", "x")
	assert.ErrorIs(t, err, readme.ErrValidation)
}

func TestSetDefault(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepo()
	svc := NewService(store, &fakeFetcher{user: octocat()}, &fakeCompleter{}, testConfig())

	err := svc.SetDefault(ctx, "octocat", "minimal")
	assert.ErrorIs(t, err, readme.ErrNotFound)

	assert.ErrorIs(t, svc.SetDefault(ctx, "octocat", ""), readme.ErrValidation)

	_, err = svc.Save(ctx, "octocat", "minimal", "min")
	require.NoError(t, err)
	require.NoError(t, svc.SetDefault(ctx, "OctoCat", "minimal"))

	def, err := store.DefaultMode(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, readme.ModeMinimal, def)
}

func TestProfileDropsProfileRepo(t *testing.T) {
	f := &fakeFetcher{
		user: octocat(),
		repos: []github.Repo{
			{Name: "octocat"},
			{Name: "Hello-World"},
		},
	}
	svc := NewService(repository.NewMemoryRepo(), f, &fakeCompleter{}, testConfig())

	u, repos, err := svc.Profile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", u.Login)
	require.Len(t, repos, 1)
	assert.Equal(t, "Hello-World", repos[0].Name)
}
