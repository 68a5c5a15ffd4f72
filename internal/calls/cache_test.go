package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/goccy/go-json"
	"github.com/richxcame/cdr-radar/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	suspicious := sampleSuspicious()
	return &Report{
		ID:          "5f0c2f7e-4a8b-4a57-9d2e-2b7e4c1d9a10",
		Digest:      "d1g3st",
		Records:     140,
		GeneratedAt: baseTime,
		Suspicious:  suspicious,
		Summary:     Summarize(suspicious, DefaultPolicy()),
		Countries:   AggregateByCountry(suspicious),
	}
}

func TestRedisReportCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisReportCache(redis.WrapClient(db), "cdr:report", 5*time.Minute)
	report := sampleReport()

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectSet("cdr:report:t10-h25-c50-last_in_order:d1g3st", raw, 5*time.Minute).SetVal("OK")

	require.NoError(t, cache.Set(context.Background(), reportKey(DefaultPolicy(), report.Digest), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReportCache_SetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisReportCache(redis.WrapClient(db), "cdr:report", time.Minute)
	report := sampleReport()

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectSet("cdr:report:d1g3st", raw, time.Minute).SetErr(errors.New("OOM command not allowed"))

	err = cache.Set(context.Background(), "d1g3st", report)
	assert.ErrorContains(t, err, "cache report")
}

func TestRedisReportCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisReportCache(redis.WrapClient(db), "cdr:report", time.Minute)
	want := sampleReport()

	raw, err := json.Marshal(want)
	require.NoError(t, err)
	mock.ExpectGet("cdr:report:d1g3st").SetVal(string(raw))

	got, ok, err := cache.Get(context.Background(), "d1g3st")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Suspicious, got.Suspicious)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Countries, got.Countries)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReportCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisReportCache(redis.WrapClient(db), "cdr:report", time.Minute)

	mock.ExpectGet("cdr:report:unknown").RedisNil()

	got, ok, err := cache.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisReportCache_GetErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisReportCache(redis.WrapClient(db), "cdr:report", time.Minute)

	mock.ExpectGet("cdr:report:broken").SetVal("{not json")
	_, ok, err := cache.Get(context.Background(), "broken")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "decode cached report")

	mock.ExpectGet("cdr:report:down").SetErr(errors.New("connection refused"))
	_, ok, err = cache.Get(context.Background(), "down")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "read cached report")
}

func TestReportKey_ScopesDigestByPolicy(t *testing.T) {
	base := DefaultPolicy()

	stricter := base
	stricter.SuspicionThreshold = 20

	byTimestamp := base
	byTimestamp.Selection = SelectMaxByTimestamp

	key := reportKey(base, "d1g3st")
	assert.Equal(t, "t10-h25-c50-last_in_order:d1g3st", key)
	assert.Equal(t, key, reportKey(DefaultPolicy(), "d1g3st"))
	assert.NotEqual(t, key, reportKey(stricter, "d1g3st"))
	assert.NotEqual(t, key, reportKey(byTimestamp, "d1g3st"))
}
