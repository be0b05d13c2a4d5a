package rembg_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/rembg"
	"github.com/chaos-io/bgremove/rembg/rembgtest"
)

func TestSessionCache_LoadsOnce(t *testing.T) {
	t.Parallel()

	fake := &rembgtest.Fake{}
	cache := rembg.NewSessionCache(fake)
	ctx := context.Background()

	first, err := cache.GetOrCreate(ctx, model.U2Net)
	require.NoError(t, err)
	second, err := cache.GetOrCreate(ctx, model.U2Net)
	require.NoError(t, err)

	assert.Same(t, fake, cache.Backend())
	assert.Equal(t, first, second)
	assert.Equal(t, model.U2Net, first.Model())
	assert.Equal(t, 1, fake.Loads(model.U2Net))
	assert.EqualValues(t, 1, cache.Loads())
	assert.Equal(t, 1, cache.Len())
}

func TestSessionCache_SeparateModels(t *testing.T) {
	t.Parallel()

	fake := &rembgtest.Fake{}
	cache := rembg.NewSessionCache(fake)
	ctx := context.Background()

	for _, id := range []string{model.U2Net, model.BiRefNet, model.U2Net, model.BiRefNet} {
		s, err := cache.GetOrCreate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, s.Model())
	}

	assert.Equal(t, 1, fake.Loads(model.U2Net))
	assert.Equal(t, 1, fake.Loads(model.BiRefNet))
	assert.Equal(t, 2, cache.Len())
}

func TestSessionCache_ConcurrentFirstUse(t *testing.T) {
	t.Parallel()

	fake := &rembgtest.Fake{LoadDelay: 50 * time.Millisecond}
	cache := rembg.NewSessionCache(fake)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCreate(context.Background(), model.ISNetGeneral)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.Loads(model.ISNetGeneral))
	assert.EqualValues(t, 1, cache.Loads())
}

func TestSessionCache_CallerCancelDoesNotAbortSharedLoad(t *testing.T) {
	t.Parallel()

	fake := &rembgtest.Fake{LoadDelay: 200 * time.Millisecond}
	cache := rembg.NewSessionCache(fake)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCreate(ctxA, model.U2Net)
		errA <- err
	}()

	type result struct {
		sess rembg.Session
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		// 等 A 先发起加载
		time.Sleep(10 * time.Millisecond)
		s, err := cache.GetOrCreate(context.Background(), model.U2Net)
		resB <- result{s, err}
	}()

	time.Sleep(40 * time.Millisecond)
	cancelA()

	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, rembg.ErrModelLoad)

	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, model.U2Net, b.sess.Model())
	assert.Equal(t, 1, fake.Loads(model.U2Net))
	assert.Equal(t, 1, cache.Len())

	// 取消的调用方重试时直接命中缓存
	s, err := cache.GetOrCreate(context.Background(), model.U2Net)
	require.NoError(t, err)
	assert.Equal(t, b.sess, s)
	assert.Equal(t, 1, fake.Loads(model.U2Net))
}

func TestSessionCache_FailureNotCached(t *testing.T) {
	t.Parallel()

	fake := &rembgtest.Fake{FailLoad: map[string]bool{model.BiRefNet: true}}
	cache := rembg.NewSessionCache(fake)
	ctx := context.Background()

	_, err := cache.GetOrCreate(ctx, model.BiRefNet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rembg.ErrModelLoad))
	assert.Equal(t, 0, cache.Len())

	delete(fake.FailLoad, model.BiRefNet)
	s, err := cache.GetOrCreate(ctx, model.BiRefNet)
	require.NoError(t, err)
	assert.Equal(t, model.BiRefNet, s.Model())
	assert.Equal(t, 2, fake.Loads(model.BiRefNet))
}

type closingSession struct {
	closed *int
}

func (s closingSession) Model() string { return "closing" }

func (s closingSession) Close() error {
	*s.closed++
	return nil
}

type closingBackend struct {
	rembgtest.Fake
	closed int
}

func (b *closingBackend) Load(context.Context, string) (rembg.Session, error) {
	return closingSession{closed: &b.closed}, nil
}

func TestSessionCache_Close(t *testing.T) {
	t.Parallel()

	backend := &closingBackend{}
	cache := rembg.NewSessionCache(backend)

	_, err := cache.GetOrCreate(context.Background(), "closing")
	require.NoError(t, err)

	require.NoError(t, cache.Close())
	assert.Equal(t, 1, backend.closed)
	assert.Equal(t, 0, cache.Len())
}
