package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "driftline/internal/db"
	"driftline/internal/domain"
)

func setupAPIKeyRepo(t *testing.T) *APIKeyRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewAPIKeyRepo(writeDB)
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func makeAPIKey(name, raw string, expiresAt *time.Time) *domain.APIKey {
	return &domain.APIKey{
		ID:        domain.NewID(),
		Name:      name,
		KeyPrefix: raw[:8],
		KeyHash:   hashKey(raw),
		CreatedBy: "tester",
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

func TestAPIKeyRepo_CreateAndLookup(t *testing.T) {
	repo := setupAPIKeyRepo(t)
	ctx := context.Background()

	raw := "abcdef0123456789"
	require.NoError(t, repo.Create(ctx, makeAPIKey("ci-loader", raw, nil)))

	name, err := repo.LookupPrincipalByAPIKeyHash(ctx, hashKey(raw))
	require.NoError(t, err)
	assert.Equal(t, "ci-loader", name)
}

func TestAPIKeyRepo_LookupUnknown(t *testing.T) {
	repo := setupAPIKeyRepo(t)

	_, err := repo.LookupPrincipalByAPIKeyHash(context.Background(), hashKey("missing"))
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)
}

func TestAPIKeyRepo_LookupExpired(t *testing.T) {
	repo := setupAPIKeyRepo(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	raw := "abcdef0123456789"
	require.NoError(t, repo.Create(ctx, makeAPIKey("stale", raw, &past)))

	_, err := repo.LookupPrincipalByAPIKeyHash(ctx, hashKey(raw))
	require.Error(t, err)
	assert.IsType(t, &domain.AccessDeniedError{}, err)
}

func TestAPIKeyRepo_DuplicateName(t *testing.T) {
	repo := setupAPIKeyRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeAPIKey("ci-loader", "abcdef0123456789", nil)))

	err := repo.Create(ctx, makeAPIKey("ci-loader", "fedcba9876543210", nil))
	require.Error(t, err)
	assert.IsType(t, &domain.ConflictError{}, err)
}

func TestAPIKeyRepo_ListAndDelete(t *testing.T) {
	repo := setupAPIKeyRepo(t)
	ctx := context.Background()

	k := makeAPIKey("ci-loader", "abcdef0123456789", nil)
	require.NoError(t, repo.Create(ctx, k))
	require.NoError(t, repo.Create(ctx, makeAPIKey("dashboard", "fedcba9876543210", nil)))

	keys, total, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, keys, 2)

	require.NoError(t, repo.Delete(ctx, k.ID))

	_, total, err = repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	err = repo.Delete(ctx, k.ID)
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)
}

func TestAPIKeyRepo_DeleteExpired(t *testing.T) {
	repo := setupAPIKeyRepo(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.Create(ctx, makeAPIKey("stale", "abcdef0123456789", &past)))
	require.NoError(t, repo.Create(ctx, makeAPIKey("fresh", "fedcba9876543210", &future)))
	require.NoError(t, repo.Create(ctx, makeAPIKey("forever", "0123456789abcdef", nil)))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	keys, _, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.NotEqual(t, "stale", k.Name)
	}
}
