package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"planproof/internal/domain"
	"planproof/internal/port"
)

// Cache fronts the resolution cache repository. A cache hit at acceptable
// confidence means a recurring document's field never costs a second LLM call.
type Cache struct {
	repo port.ResolutionCacheRepository
}

// NewCache creates a resolution cache over the given repository.
func NewCache(repo port.ResolutionCacheRepository) *Cache {
	return &Cache{repo: repo}
}

// Lookup returns the cached entry for a scope+field, or nil on miss.
func (c *Cache) Lookup(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, field string) (*domain.ResolutionCacheEntry, error) {
	entry, err := c.repo.Get(ctx, scopeKind, scopeID, field)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache lookup %s/%s/%s: %w", scopeKind, scopeID, field, err)
	}
	return entry, nil
}

// Store writes a resolution into the cache. Last writer wins per key;
// resolution is idempotent for the same source documents, so a redundant
// overwrite is harmless.
func (c *Cache) Store(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, field, value string, confidence float64, resolvedBy domain.ResolvedBy) error {
	now := time.Now().UTC()
	return c.repo.Put(ctx, &domain.ResolutionCacheEntry{
		ScopeKind:  scopeKind,
		ScopeID:    scopeID,
		FieldName:  field,
		Value:      value,
		Confidence: confidence,
		ResolvedBy: resolvedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Supersede refreshes stale LLM cache entries with fresher deterministic
// resolutions. A deterministic value at or above the cached confidence always
// wins; no error surfaces to the caller.
func (c *Cache) Supersede(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, fields []domain.ResolvedField) {
	for _, f := range fields {
		if f.ResolvedBy != domain.ResolvedByDeterministic {
			continue
		}
		entry, err := c.Lookup(ctx, scopeKind, scopeID, f.FieldName)
		if err != nil {
			log.Printf("gate.Cache.Supersede: lookup failed for %s: %v", f.FieldName, err)
			continue
		}
		if entry == nil || entry.ResolvedBy != domain.ResolvedByLLM {
			continue
		}
		if f.Confidence < entry.Confidence {
			continue
		}
		if err := c.Store(ctx, scopeKind, scopeID, f.FieldName, f.Value, f.Confidence, domain.ResolvedByDeterministic); err != nil {
			log.Printf("gate.Cache.Supersede: refresh failed for %s: %v", f.FieldName, err)
		}
	}
}
