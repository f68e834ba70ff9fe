package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/grading"
	rediscache "github.com/trezcool/shule/storage/cache/redis"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/testutil"
)

// countingRepo counts the reads reaching the repository. afterRead, when set, runs once a read is done.
type countingRepo struct {
	grading.ScaleRepository
	reads     int
	afterRead func()
}

func (r *countingRepo) GetScale(ctx context.Context, schoolID string) (grading.Scale, error) {
	r.reads++
	scale, err := r.ScaleRepository.GetScale(ctx, schoolID)
	if fn := r.afterRead; fn != nil {
		r.afterRead = nil
		fn()
	}
	return scale, err
}

func newCache(t *testing.T) (grading.ScaleRepository, *countingRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rediscache.Open(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{ScaleRepository: inmemdb.NewScaleRepository(inmemdb.Open())}
	return rediscache.NewScaleCache(client, repo, time.Minute, testutil.NewLogger()), repo, mr
}

func TestScaleCache(t *testing.T) {
	ctx := context.Background()
	cache, repo, mr := newCache(t)

	// absence is cached too
	for i := 0; i < 2; i++ {
		_, err := cache.GetScale(ctx, "s1")
		assert.Equal(t, grading.ErrScaleNotFound, err)
	}
	assert.Equal(t, 1, repo.reads)

	scale := grading.Scale{
		{Grade: "A", Min: 80, Max: 100, Points: testutil.FloatPtr(4)},
		{Grade: "F", Min: 0, Max: 79.99, Remarks: testutil.StrPtr("Retake")},
	}
	require.NoError(t, cache.ReplaceScale(ctx, "s1", scale))
	assert.True(t, mr.Exists("grading_scale:s1"))

	for i := 0; i < 3; i++ {
		got, err := cache.GetScale(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, scale, got)
	}
	assert.Equal(t, 1, repo.reads)

	mr.FastForward(2 * time.Minute)
	_, err := cache.GetScale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
}

func TestScaleCache_replaceDuringRead(t *testing.T) {
	ctx := context.Background()
	cache, repo, _ := newCache(t)
	require.NoError(t, repo.ReplaceScale(ctx, "s1", grading.DefaultScale()))

	passFail := grading.Scale{
		{Grade: "P", Min: 50, Max: 100},
		{Grade: "F", Min: 0, Max: 49.99},
	}
	// the scale is replaced after the read below loaded the old version, before it is cached
	repo.afterRead = func() {
		require.NoError(t, cache.ReplaceScale(ctx, "s1", passFail))
	}

	got, err := cache.GetScale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultScale(), got)

	for i := 0; i < 2; i++ {
		got, err = cache.GetScale(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, passFail, got)
	}
	assert.Equal(t, 1, repo.reads)
}

func TestScaleCache_redisDown(t *testing.T) {
	ctx := context.Background()
	cache, repo, mr := newCache(t)
	require.NoError(t, repo.ReplaceScale(ctx, "s1", grading.DefaultScale()))

	mr.SetError("ERR server unavailable")
	got, err := cache.GetScale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultScale(), got)

	// the replacement is stored even though it cannot be cached
	passFail := grading.Scale{{Grade: "P", Min: 50, Max: 100}}
	require.NoError(t, cache.ReplaceScale(ctx, "s1", passFail))
	got, err = repo.ScaleRepository.GetScale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, passFail, got)
}
