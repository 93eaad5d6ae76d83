package service

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "driftline/internal/db"
	"driftline/internal/db/repository"
	"driftline/internal/domain"
)

func setupDatasetService(t *testing.T) (*DatasetService, *fakeReloader) {
	t.Helper()
	db, _ := internaldb.OpenTestSQLite(t)
	svc := NewDatasetService(repository.NewDatasetRepo(db), repository.NewAuditRepo(db))
	reloader := &fakeReloader{}
	svc.SetScheduleReloader(reloader)
	return svc, reloader
}

func TestDatasetService_Create(t *testing.T) {
	svc, reloader := setupDatasetService(t)

	ds, err := svc.Create(adminCtx(), domain.CreateDatasetRequest{
		Name:       "orders",
		Bucket:     "s3://landing-zone",
		KeyColumns: []string{"id"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "orders", ds.Name)
	assert.Equal(t, "orders", ds.TableName())
	assert.Equal(t, "orders", ds.LandingPrefix())
	assert.Equal(t, "admin-user", ds.CreatedBy)
	assert.Equal(t, 1, reloader.calls)

	got, err := svc.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, got.ID)
	assert.Equal(t, []string{"id"}, got.KeyColumns)
}

func TestDatasetService_Create_Invalid(t *testing.T) {
	svc, _ := setupDatasetService(t)

	tests := []struct {
		name string
		req  domain.CreateDatasetRequest
	}{
		{"missing name", domain.CreateDatasetRequest{Bucket: "b", KeyColumns: []string{"id"}}},
		{"missing bucket", domain.CreateDatasetRequest{Name: "orders", KeyColumns: []string{"id"}}},
		{"missing key columns", domain.CreateDatasetRequest{Name: "orders", Bucket: "b"}},
		{"bad dataset name", domain.CreateDatasetRequest{Name: "or ders", Bucket: "b", KeyColumns: []string{"id"}}},
		{"bad bucket scheme", domain.CreateDatasetRequest{Name: "orders", Bucket: "ftp://b", KeyColumns: []string{"id"}}},
		{"bucket with path", domain.CreateDatasetRequest{Name: "orders", Bucket: "s3://b/landing", KeyColumns: []string{"id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(adminCtx(), tt.req)
			require.Error(t, err)
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestDatasetService_Create_Duplicate(t *testing.T) {
	svc, _ := setupDatasetService(t)

	req := domain.CreateDatasetRequest{Name: "orders", Bucket: "landing", KeyColumns: []string{"id"}}
	_, err := svc.Create(adminCtx(), req)
	require.NoError(t, err)

	_, err = svc.Create(adminCtx(), req)
	require.Error(t, err)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDatasetService_Update(t *testing.T) {
	svc, reloader := setupDatasetService(t)

	_, err := svc.Create(adminCtx(), domain.CreateDatasetRequest{
		Name: "orders", Bucket: "landing", KeyColumns: []string{"id"},
	})
	require.NoError(t, err)

	paused := true
	cron := "*/5 * * * *"
	ds, err := svc.Update(adminCtx(), "orders", domain.UpdateDatasetRequest{
		Paused:       &paused,
		ScheduleCron: &cron,
	})
	require.NoError(t, err)

	assert.True(t, ds.Paused)
	require.NotNil(t, ds.ScheduleCron)
	assert.Equal(t, cron, *ds.ScheduleCron)
	assert.Equal(t, 2, reloader.calls) // create + update
}

func TestDatasetService_Update_Unknown(t *testing.T) {
	svc, _ := setupDatasetService(t)

	_, err := svc.Update(adminCtx(), "ghost", domain.UpdateDatasetRequest{})
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDatasetService_Delete(t *testing.T) {
	svc, reloader := setupDatasetService(t)

	_, err := svc.Create(adminCtx(), domain.CreateDatasetRequest{
		Name: "orders", Bucket: "landing", KeyColumns: []string{"id"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(adminCtx(), "orders"))
	assert.Equal(t, 2, reloader.calls)

	_, err = svc.Get(ctx, "orders")
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDatasetService_List(t *testing.T) {
	svc, _ := setupDatasetService(t)

	for _, name := range []string{"orders", "refunds"} {
		_, err := svc.Create(adminCtx(), domain.CreateDatasetRequest{
			Name: name, Bucket: "landing", KeyColumns: []string{"id"},
		})
		require.NoError(t, err)
	}

	datasets, total, err := svc.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, datasets, 2)
}
