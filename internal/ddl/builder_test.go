package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTableIfNotExists(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []ColumnDef
		keys    []string
		want    string
		wantErr string
	}{
		{
			name:  "valid",
			table: "student",
			columns: []ColumnDef{
				{Name: "id", Type: "BIGINT", NotNull: true},
				{Name: "name", Type: "VARCHAR(255)"},
				{Name: "score", Type: "DOUBLE"},
			},
			keys: []string{"id"},
			want: "CREATE TABLE IF NOT EXISTS `student` (`id` BIGINT NOT NULL, `name` VARCHAR(255), `score` DOUBLE, PRIMARY KEY (`id`))",
		},
		{
			name:  "composite_key",
			table: "orders",
			columns: []ColumnDef{
				{Name: "order_id", Type: "BIGINT", NotNull: true},
				{Name: "line_no", Type: "BIGINT", NotNull: true},
				{Name: "qty", Type: "BIGINT"},
			},
			keys: []string{"order_id", "line_no"},
			want: "CREATE TABLE IF NOT EXISTS `orders` (`order_id` BIGINT NOT NULL, `line_no` BIGINT NOT NULL, `qty` BIGINT, PRIMARY KEY (`order_id`, `line_no`))",
		},
		{
			name:    "invalid_table",
			table:   "my-table",
			columns: []ColumnDef{{Name: "id", Type: "BIGINT"}},
			keys:    []string{"id"},
			wantErr: "invalid table name",
		},
		{
			name:    "no_columns",
			table:   "student",
			keys:    []string{"id"},
			wantErr: "at least one column is required",
		},
		{
			name:    "no_keys",
			table:   "student",
			columns: []ColumnDef{{Name: "id", Type: "BIGINT"}},
			wantErr: "at least one key column is required",
		},
		{
			name:    "invalid_column_name",
			table:   "student",
			columns: []ColumnDef{{Name: "drop table", Type: "BIGINT"}},
			keys:    []string{"id"},
			wantErr: "invalid column name",
		},
		{
			name:    "invalid_column_type",
			table:   "student",
			columns: []ColumnDef{{Name: "id", Type: "BIGINT; DROP TABLE x"}},
			keys:    []string{"id"},
			wantErr: "invalid column type",
		},
		{
			name:    "key_not_a_column",
			table:   "student",
			columns: []ColumnDef{{Name: "id", Type: "BIGINT"}},
			keys:    []string{"email"},
			wantErr: `key column "email" is not a defined column`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateTableIfNotExists(tt.table, tt.columns, tt.keys)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddColumn(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		column  ColumnDef
		want    string
		wantErr string
	}{
		{
			name:   "valid",
			table:  "student",
			column: ColumnDef{Name: "email", Type: "VARCHAR(255)"},
			want:   "ALTER TABLE `student` ADD COLUMN `email` VARCHAR(255)",
		},
		{
			name:    "invalid_table",
			table:   "",
			column:  ColumnDef{Name: "email", Type: "VARCHAR(255)"},
			wantErr: "invalid table name",
		},
		{
			name:    "invalid_column",
			table:   "student",
			column:  ColumnDef{Name: "e;mail", Type: "VARCHAR(255)"},
			wantErr: "invalid column name",
		},
		{
			name:    "invalid_type",
			table:   "student",
			column:  ColumnDef{Name: "email", Type: "VARCHAR(255)'--"},
			wantErr: "invalid column type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddColumn(tt.table, tt.column)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsertOnDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		want    string
		wantErr string
	}{
		{
			name:    "valid",
			table:   "student",
			columns: []string{"id", "name"},
			want:    "INSERT INTO `student` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `id` = VALUES(`id`), `name` = VALUES(`name`)",
		},
		{
			name:    "single_column",
			table:   "student",
			columns: []string{"id"},
			want:    "INSERT INTO `student` (`id`) VALUES (?) ON DUPLICATE KEY UPDATE `id` = VALUES(`id`)",
		},
		{
			name:    "invalid_table",
			table:   "stu dent",
			columns: []string{"id"},
			wantErr: "invalid table name",
		},
		{
			name:    "no_columns",
			table:   "student",
			wantErr: "at least one column is required",
		},
		{
			name:    "invalid_column",
			table:   "student",
			columns: []string{"id", "name`--"},
			wantErr: "invalid column name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertOnDuplicate(tt.table, tt.columns)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
