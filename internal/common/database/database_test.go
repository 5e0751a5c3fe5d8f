package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"collections-reminders/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgres_DoesNotConnect(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: 1, Database: "x", User: "u", SSLMode: "disable",
		MaxConnections: 2, MaxIdle: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, client.DB.Stats().MaxOpenConnections)
	assert.NoError(t, client.Close())
}

func TestNewRedis(t *testing.T) {
	none, err := NewRedis(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, none)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestElasticsearchPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}
