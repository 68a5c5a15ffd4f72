package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/cdr-radar/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfig_RedisAddr(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		expected string
	}{
		{"default localhost", config.RedisConfig{Host: "localhost", Port: "6379"}, "localhost:6379"},
		{"custom host and port", config.RedisConfig{Host: "redis.example.com", Port: "6380"}, "redis.example.com:6380"},
		{"empty values", config.RedisConfig{}, ":"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.RedisAddr())
		})
	}
}

func TestClient_GetBytes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := WrapClient(db)
	ctx := context.Background()

	mock.ExpectGet("cdr:report:abc").SetVal(`{"id":"r1"}`)

	got, err := client.GetBytes(ctx, "cdr:report:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"r1"}`), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetBytes_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := WrapClient(db)

	mock.ExpectGet("cdr:report:missing").RedisNil()

	_, err := client.GetBytes(context.Background(), "cdr:report:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetBytes_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := WrapClient(db)

	mock.ExpectGet("cdr:report:abc").SetErr(errors.New("connection refused"))

	_, err := client.GetBytes(context.Background(), "cdr:report:abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestClient_SetWithExpiration(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := WrapClient(db)
	ctx := context.Background()

	mock.ExpectSet("k", "v", time.Minute).SetVal("OK")

	require.NoError(t, client.SetWithExpiration(ctx, "k", "v", time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}
