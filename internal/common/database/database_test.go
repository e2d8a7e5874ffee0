// internal/common/database/database_test.go
package database

import (
	"context"
	"errors"
	"testing"

	"interview-prep-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := &PostgresClient{DB: db}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, client.Migrate(context.Background()))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").
		WillReturnError(errors.New("permission denied"))
	err = client.Migrate(context.Background())
	assert.ErrorContains(t, err, "failed to apply schema")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClients_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer cache.Close()
	assert.NoError(t, cache.Ping(context.Background()))

	sessions := NewSessionRedis(config.RedisConfig{Address: mr.Addr()})
	defer sessions.Close()
	assert.NoError(t, sessions.Ping(context.Background()))

	_, err = NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestNewElasticsearch_FallsBackToURL(t *testing.T) {
	es, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://localhost:9200"})
	require.NoError(t, err)
	assert.NotNil(t, es.Client)
}
