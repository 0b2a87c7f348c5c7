package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stanleyluong/stanslist/internal/domain"
)

func TestRedisCache_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "stanslist:probe:u1")).
		Return(mock.Result(mock.RedisString("true")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "stanslist:probe:u2")).
		Return(mock.Result(mock.RedisNil()))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "stanslist:probe:u3")).
		Return(mock.ErrorResult(errors.New("connection reset")))

	cache := NewRedisCache(c, "stanslist:")
	ctx := context.Background()

	value, err := cache.Get(ctx, "probe:u1")
	require.NoError(t, err)
	assert.Equal(t, true, value)

	_, err = cache.Get(ctx, "probe:u2")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	_, err = cache.Get(ctx, "probe:u3")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_Set(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "stanslist:probe:u1", "false", "EX", "600")).
		Return(mock.Result(mock.RedisString("OK")))

	cache := NewRedisCache(c, "stanslist:")
	require.NoError(t, cache.Set(context.Background(), "probe:u1", false, 10*time.Minute))

	assert.Error(t, cache.Set(context.Background(), "bad", make(chan int), time.Minute))
}

func TestRedisCache_SetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "p:k", "true", "EX", "60")).
		Return(mock.ErrorResult(errors.New("READONLY")))

	cache := NewRedisCache(c, "p:")
	err := cache.Set(context.Background(), "k", true, time.Minute)
	assert.ErrorContains(t, err, "cache set")
}
