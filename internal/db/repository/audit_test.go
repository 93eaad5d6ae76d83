package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "driftline/internal/db"
	"driftline/internal/domain"
)

func setupAuditRepo(t *testing.T) *AuditRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewAuditRepo(writeDB)
}

func makeAuditEntry(principal, action, status string) *domain.AuditEntry {
	return &domain.AuditEntry{
		PrincipalName: principal,
		Action:        action,
		ResourceType:  ptrStr("dataset"),
		ResourceName:  ptrStr("orders"),
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestAuditRepo_InsertAndList(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "CREATE_DATASET", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "TRIGGER_RUN", "OK")))

	entries, total, err := repo.List(ctx, domain.AuditFilter{Page: domain.PageRequest{}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)
	// Insert assigns IDs and timestamps when missing.
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestAuditRepo_FilterByPrincipal(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "CREATE_DATASET", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "TRIGGER_RUN", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "TRIGGER_RUN", "OK")))

	entries, total, err := repo.List(ctx, domain.AuditFilter{
		PrincipalName: ptrStr("alice"),
		Page:          domain.PageRequest{},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range entries {
		assert.Equal(t, "alice", e.PrincipalName)
	}
}

func TestAuditRepo_FilterByActionAndStatus(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "TRIGGER_RUN", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "TRIGGER_RUN", "ERROR")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("carol", "DELETE_DATASET", "OK")))

	entries, total, err := repo.List(ctx, domain.AuditFilter{
		Action: ptrStr("TRIGGER_RUN"),
		Status: ptrStr("OK"),
		Page:   domain.PageRequest{},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].PrincipalName)
}

func TestAuditRepo_FilterSince(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	old := makeAuditEntry("alice", "TRIGGER_RUN", "OK")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Insert(ctx, old))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "TRIGGER_RUN", "OK")))

	since := time.Now().UTC().Add(-time.Hour)
	entries, total, err := repo.List(ctx, domain.AuditFilter{
		Since: &since,
		Page:  domain.PageRequest{},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].PrincipalName)
}

func TestAuditRepo_Pagination(t *testing.T) {
	repo := setupAuditRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeAuditEntry("alice", "TRIGGER_RUN", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("bob", "TRIGGER_RUN", "OK")))
	require.NoError(t, repo.Insert(ctx, makeAuditEntry("carol", "TRIGGER_RUN", "OK")))

	entries, total, err := repo.List(ctx, domain.AuditFilter{
		Page: domain.PageRequest{MaxResults: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)
}

func TestAuditRepo_EmptyList(t *testing.T) {
	repo := setupAuditRepo(t)

	entries, total, err := repo.List(context.Background(), domain.AuditFilter{Page: domain.PageRequest{}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, entries)
}
