package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"driftline/internal/domain"
)

// APIKeyService provides API key management operations. A key's name doubles
// as the principal name requests authenticated with it run under.
type APIKeyService struct {
	repo  domain.APIKeyRepository
	audit domain.AuditRepository
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(repo domain.APIKeyRepository, audit domain.AuditRepository) *APIKeyService {
	return &APIKeyService{repo: repo, audit: audit}
}

// Create mints a new API key. Requires admin privileges.
// Returns the raw key (shown once) and the stored key metadata.
func (s *APIKeyService) Create(ctx context.Context, req domain.CreateAPIKeyRequest) (string, *domain.APIKey, error) {
	if err := requireAdmin(ctx); err != nil {
		return "", nil, err
	}
	if err := req.Validate(); err != nil {
		return "", nil, err
	}

	// Generate a cryptographically secure random key.
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	rawKey := hex.EncodeToString(rawBytes)

	// Hash for storage; the raw key is never persisted.
	hash := sha256.Sum256([]byte(rawKey))

	key := &domain.APIKey{
		ID:        domain.NewID(),
		Name:      req.Name,
		KeyPrefix: rawKey[:8],
		KeyHash:   hex.EncodeToString(hash[:]),
		CreatedBy: callerName(ctx),
		ExpiresAt: req.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	s.logAudit(ctx, "apikey.create", req.Name)
	return rawKey, key, nil
}

// List returns API key metadata (never raw key values).
func (s *APIKeyService) List(ctx context.Context, page domain.PageRequest) ([]domain.APIKey, int64, error) {
	return s.repo.List(ctx, page)
}

// Delete removes an API key by ID. Requires admin privileges.
func (s *APIKeyService) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "apikey.delete", id)
	return nil
}

// CleanupExpired removes all expired API keys. Requires admin privileges.
func (s *APIKeyService) CleanupExpired(ctx context.Context) (int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	count, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, "apikey.cleanup_expired", fmt.Sprintf("%d keys", count))
	return count, nil
}

func (s *APIKeyService) logAudit(ctx context.Context, action, name string) {
	rt := "api_key"
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ID:            domain.NewID(),
		PrincipalName: callerName(ctx),
		Action:        action,
		ResourceType:  &rt,
		ResourceName:  &name,
		Status:        "OK",
		CreatedAt:     time.Now(),
	})
}
