package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"styleswap/internal/styleswap"
)

func TestCacheRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewCache(rdb, 0)
	user := &styleswap.User{Id: "user-1", Email: "a@example.com", FullName: "A", Credits: 5}
	data, err := json.Marshal(user)
	require.NoError(t, err)

	mock.ExpectSet("styleswap_user_session:user-1", data, DefaultTTL).SetVal("OK")
	mock.ExpectGet("styleswap_user_session:user-1").SetVal(string(data))
	mock.ExpectDel("styleswap_user_session:user-1").SetVal(1)

	require.NoError(t, cache.Set(context.Background(), user))
	got, err := cache.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	require.NoError(t, cache.Invalidate(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewCache(rdb, DefaultTTL)
	mock.ExpectGet(Key("user-2")).RedisNil()

	_, err := cache.Get(context.Background(), "user-2")

	assert.ErrorIs(t, err, styleswap.ErrNotFound)
}

func TestCacheUnavailable(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewCache(rdb, DefaultTTL)
	mock.ExpectGet(Key("user-3")).SetErr(errors.New("dial tcp: connection refused"))

	_, err := cache.Get(context.Background(), "user-3")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, styleswap.ErrNotFound)
}
