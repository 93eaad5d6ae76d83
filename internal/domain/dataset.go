package domain

import (
	"regexp"
	"time"
)

// datasetNameRe allows alphanumeric + underscores, starting with a letter or underscore.
// Dataset names double as landing-zone prefixes and default table names, so the
// rule matches the SQL identifier rule.
var datasetNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxDatasetNameLen is the maximum length allowed for a dataset name.
const maxDatasetNameLen = 128

// Dataset represents a registered source feeding one warehouse table.
type Dataset struct {
	ID              string
	Name            string
	Table           string // destination table; defaults to Name
	Bucket          string
	Prefix          string // landing prefix inside the bucket; defaults to Name
	KeyColumns      []string
	ScheduleCron    *string
	TransformHook   *string // Starlark source, run per row after cleaning
	Paused          bool
	NotifyOnSuccess bool
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateDatasetRequest holds parameters for registering a dataset.
type CreateDatasetRequest struct {
	Name            string
	Table           string
	Bucket          string
	Prefix          string
	KeyColumns      []string
	ScheduleCron    *string
	TransformHook   *string
	Paused          bool
	NotifyOnSuccess bool
}

// Validate checks that the request is well-formed.
func (r *CreateDatasetRequest) Validate() error {
	if err := validateDatasetName("name", r.Name); err != nil {
		return err
	}
	if r.Table != "" {
		if err := validateDatasetName("table", r.Table); err != nil {
			return err
		}
	}
	if r.Bucket == "" {
		return ErrValidation("bucket is required")
	}
	if len(r.KeyColumns) == 0 {
		return ErrValidation("key_columns is required for upsert loading")
	}
	for _, c := range r.KeyColumns {
		if err := validateDatasetName("key_columns entry", c); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDatasetRequest holds partial-update parameters for a dataset.
// Nil fields are left unchanged.
type UpdateDatasetRequest struct {
	Table           *string
	Bucket          *string
	Prefix          *string
	KeyColumns      *[]string
	ScheduleCron    *string
	TransformHook   *string
	Paused          *bool
	NotifyOnSuccess *bool
}

// Validate checks that the request is well-formed.
func (r *UpdateDatasetRequest) Validate() error {
	if r.Table != nil {
		if err := validateDatasetName("table", *r.Table); err != nil {
			return err
		}
	}
	if r.Bucket != nil && *r.Bucket == "" {
		return ErrValidation("bucket must not be empty")
	}
	if r.KeyColumns != nil {
		if len(*r.KeyColumns) == 0 {
			return ErrValidation("key_columns must not be empty")
		}
		for _, c := range *r.KeyColumns {
			if err := validateDatasetName("key_columns entry", c); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDatasetName(field, name string) error {
	if name == "" {
		return ErrValidation("%s is required", field)
	}
	if len(name) > maxDatasetNameLen {
		return ErrValidation("%s must be at most %d characters", field, maxDatasetNameLen)
	}
	if !datasetNameRe.MatchString(name) {
		return ErrValidation("%s must match [a-zA-Z_][a-zA-Z0-9_]*", field)
	}
	return nil
}

// TableName returns the effective destination table for the dataset.
func (d *Dataset) TableName() string {
	if d.Table != "" {
		return d.Table
	}
	return d.Name
}

// LandingPrefix returns the effective landing prefix for the dataset.
func (d *Dataset) LandingPrefix() string {
	if d.Prefix != "" {
		return d.Prefix
	}
	return d.Name
}
