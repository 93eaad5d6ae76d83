package service

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "driftline/internal/db"
	"driftline/internal/db/repository"
	"driftline/internal/domain"
)

func setupAPIKeyService(t *testing.T) (*APIKeyService, *repository.APIKeyRepo) {
	t.Helper()
	db, _ := internaldb.OpenTestSQLite(t)
	repo := repository.NewAPIKeyRepo(db)
	return NewAPIKeyService(repo, repository.NewAuditRepo(db)), repo
}

func TestAPIKeyService_Create(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	rawKey, key, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{Name: "ci-loader"})
	require.NoError(t, err)

	assert.Len(t, rawKey, 64) // 32 bytes hex encoded
	assert.Equal(t, "ci-loader", key.Name)
	assert.Equal(t, rawKey[:8], key.KeyPrefix)
	assert.NotEqual(t, rawKey, key.KeyHash)
	assert.Equal(t, "admin-user", key.CreatedBy)
	assert.Nil(t, key.ExpiresAt)
}

func TestAPIKeyService_Create_WithExpiry(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	expiry := time.Now().Add(24 * time.Hour)
	_, key, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{Name: "expiring", ExpiresAt: &expiry})
	require.NoError(t, err)
	assert.NotNil(t, key.ExpiresAt)
}

func TestAPIKeyService_Create_EmptyName(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	_, _, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{})
	require.Error(t, err)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAPIKeyService_Create_AdminRequired(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	_, _, err := svc.Create(nonAdminCtx(), domain.CreateAPIKeyRequest{Name: "nope"})
	require.Error(t, err)
	var accessDenied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &accessDenied)
}

func TestAPIKeyService_List(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	for _, name := range []string{"key-1", "key-2"} {
		_, _, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{Name: name})
		require.NoError(t, err)
	}

	keys, total, err := svc.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, keys, 2)
}

func TestAPIKeyService_Delete(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	_, key, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{Name: "to-delete"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(adminCtx(), key.ID))

	keys, total, err := svc.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, keys)
}

func TestAPIKeyService_Delete_Unknown(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	err := svc.Delete(adminCtx(), "no-such-id")
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestAPIKeyService_CleanupExpired(t *testing.T) {
	svc, repo := setupAPIKeyService(t)

	_, _, err := svc.Create(adminCtx(), domain.CreateAPIKeyRequest{Name: "fresh"})
	require.NoError(t, err)

	// Expired keys cannot be minted through the service, seed one directly.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &domain.APIKey{
		ID:        domain.NewID(),
		Name:      "stale",
		KeyPrefix: "deadbeef",
		KeyHash:   "unused",
		CreatedBy: "tester",
		ExpiresAt: &past,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))

	count, err := svc.CleanupExpired(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, total, err := svc.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAPIKeyService_CleanupExpired_AdminRequired(t *testing.T) {
	svc, _ := setupAPIKeyService(t)

	_, err := svc.CleanupExpired(nonAdminCtx())
	require.Error(t, err)
	var accessDenied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &accessDenied)
}
