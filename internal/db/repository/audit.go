package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"driftline/internal/domain"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal_name, action, resource_type, resource_name, status, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalName, e.Action, e.ResourceType, e.ResourceName, e.Status, e.ErrorMessage, e.DurationMs, e.CreatedAt)
	return err
}

func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	conds := []string{"1=1"}
	var args []any
	if filter.PrincipalName != nil {
		conds = append(conds, "principal_name = ?")
		args = append(args, *filter.PrincipalName)
	}
	if filter.Action != nil {
		conds = append(conds, "action = ?")
		args = append(args, *filter.Action)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, principal_name, action, resource_type, resource_name, status, error_message, duration_ms, created_at
		FROM audit_log WHERE `+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var resType, resName, errMsg sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.Action, &resType, &resName, &e.Status, &errMsg, &durationMs, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.ResourceType = strPtr(resType)
		e.ResourceName = strPtr(resName)
		e.ErrorMessage = strPtr(errMsg)
		if durationMs.Valid {
			e.DurationMs = &durationMs.Int64
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
