package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "simple", input: "student"},
		{name: "with_underscore", input: "student_scores"},
		{name: "leading_underscore", input: "_internal"},
		{name: "with_digits", input: "table2"},
		{name: "empty", input: "", wantErr: "name is required"},
		{name: "too_long", input: strings.Repeat("a", 65), wantErr: "at most 64 characters"},
		{name: "leading_digit", input: "2table", wantErr: "must match"},
		{name: "dash", input: "my-table", wantErr: "must match"},
		{name: "space", input: "my table", wantErr: "must match"},
		{name: "semicolon", input: "t;drop", wantErr: "must match"},
		{name: "backtick", input: "t`", wantErr: "must match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`student`", QuoteIdentifier("student"))
	// Embedded backticks are doubled rather than terminating the quote.
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}

func TestValidateColumnType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "bigint", input: "BIGINT"},
		{name: "double", input: "DOUBLE"},
		{name: "varchar", input: "VARCHAR(255)"},
		{name: "decimal", input: "DECIMAL(10,2)"},
		{name: "lowercase", input: "varchar(255)"},
		{name: "empty", input: "", wantErr: "column type is required"},
		{name: "too_long", input: strings.Repeat("A", 65), wantErr: "at most 64 characters"},
		{name: "semicolon", input: "BIGINT;", wantErr: "invalid characters"},
		{name: "comment", input: "BIGINT --", wantErr: "invalid characters"},
		{name: "quote", input: "BIGINT'", wantErr: "invalid characters"},
		{name: "weird_parens", input: "VARCHAR(a)", wantErr: "not a recognized type pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumnType(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
