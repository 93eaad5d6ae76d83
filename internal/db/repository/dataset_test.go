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

func setupDatasetRepo(t *testing.T) *DatasetRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewDatasetRepo(writeDB)
}

func ptrStr(s string) *string { return &s }
func ptrBool(b bool) *bool    { return &b }

func makeDataset(name string) *domain.Dataset {
	now := time.Now().UTC()
	return &domain.Dataset{
		ID:         domain.NewID(),
		Name:       name,
		Table:      name,
		Bucket:     "landing-zone",
		Prefix:     name + "/",
		KeyColumns: []string{"id"},
		CreatedBy:  "tester",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestDatasetRepo_CreateAndGet(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	d := makeDataset("orders")
	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.GetByName(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "orders", got.Table)
	assert.Equal(t, []string{"id"}, got.KeyColumns)
	assert.False(t, got.Paused)
	assert.Nil(t, got.ScheduleCron)

	byID, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", byID.Name)
}

func TestDatasetRepo_GetMissing(t *testing.T) {
	repo := setupDatasetRepo(t)

	_, err := repo.GetByName(context.Background(), "nope")
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)
}

func TestDatasetRepo_DuplicateName(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeDataset("orders")))

	err := repo.Create(ctx, makeDataset("orders"))
	require.Error(t, err)
	assert.IsType(t, &domain.ConflictError{}, err)
}

func TestDatasetRepo_ListAndListActive(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeDataset("orders")))
	require.NoError(t, repo.Create(ctx, makeDataset("customers")))

	paused := makeDataset("archived")
	paused.Paused = true
	require.NoError(t, repo.Create(ctx, paused))

	all, total, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	// Ordered by name.
	assert.Equal(t, "archived", all[0].Name)
	assert.Equal(t, "customers", all[1].Name)
	assert.Equal(t, "orders", all[2].Name)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, d := range active {
		assert.False(t, d.Paused)
	}
}

func TestDatasetRepo_ListPagination(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeDataset("a")))
	require.NoError(t, repo.Create(ctx, makeDataset("b")))
	require.NoError(t, repo.Create(ctx, makeDataset("c")))

	page, total, err := repo.List(ctx, domain.PageRequest{MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
}

func TestDatasetRepo_Update(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeDataset("orders")))

	got, err := repo.Update(ctx, "orders", domain.UpdateDatasetRequest{
		Table:        ptrStr("orders_v2"),
		ScheduleCron: ptrStr("0 * * * *"),
		Paused:       ptrBool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders_v2", got.Table)
	require.NotNil(t, got.ScheduleCron)
	assert.Equal(t, "0 * * * *", *got.ScheduleCron)
	assert.True(t, got.Paused)

	// Read back to confirm persistence.
	again, err := repo.GetByName(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders_v2", again.Table)
	assert.True(t, again.Paused)
}

func TestDatasetRepo_UpdateClearsCron(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	d := makeDataset("orders")
	d.ScheduleCron = ptrStr("@hourly")
	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.Update(ctx, "orders", domain.UpdateDatasetRequest{
		ScheduleCron: ptrStr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, got.ScheduleCron)
}

func TestDatasetRepo_UpdateMissing(t *testing.T) {
	repo := setupDatasetRepo(t)

	_, err := repo.Update(context.Background(), "nope", domain.UpdateDatasetRequest{})
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)
}

func TestDatasetRepo_Delete(t *testing.T) {
	repo := setupDatasetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeDataset("orders")))
	require.NoError(t, repo.Delete(ctx, "orders"))

	_, err := repo.GetByName(ctx, "orders")
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)

	err = repo.Delete(ctx, "orders")
	require.Error(t, err)
	assert.IsType(t, &domain.NotFoundError{}, err)
}
