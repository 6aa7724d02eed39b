package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/diploma-portal/internal/models"
)

func TestMemorySessionRepositoryLifecycle(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	session := &models.Session{ID: "s-1", Role: models.RoleHolder, AuthorityToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, repo.Save(ctx, session))
	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AuthorityToken)

	require.NoError(t, repo.Delete(ctx, "s-1"))
	_, err = repo.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, repo.Save(ctx, &models.Session{}))
}

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	repo := NewMemorySessionRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Save(ctx, &models.Session{ID: "live", ExpiresAt: now.Add(time.Minute)}))

	_, err := repo.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, repo.Sweep())
	_, err = repo.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestRedisSessionRepositoryRejectsExpired(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	repo := NewRedisSessionRepository(client, nil)

	err := repo.Save(context.Background(), &models.Session{ID: "s", ExpiresAt: time.Now().Add(-time.Second)})
	assert.EqualError(t, err, "session already expired")
	assert.Equal(t, "portal:session:s", sessionKey("s"))
}

func TestRedisSessionRepositoryWrapsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	repo := NewRedisSessionRepository(client, nil)

	_, err := repo.Get(context.Background(), "s")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
