// Package dedup decides what to do with an incoming file whose content may
// already be in the catalog.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

// Action is the outcome of resolving a fingerprint against the catalog.
type Action int

const (
	// ActionStore stores the file as a new canonical entry.
	ActionStore Action = iota

	// ActionDiscard drops the file; nothing is stored or linked.
	ActionDiscard

	// ActionLink attaches the incoming context to the existing entry.
	ActionLink

	// ActionAlert surfaces the existing entry and flags the duplicate.
	// No membership or metadata change is committed; the caller decides.
	ActionAlert

	// ActionStoreCopy stores a forced physical copy next to the canonical blob.
	ActionStoreCopy
)

// Resolution carries the chosen action and, for duplicates, the existing
// canonical entry.
type Resolution struct {
	Action   Action
	Existing *domain.Media
}

// Duplicate reports whether the fingerprint matched an existing entry.
func (r Resolution) Duplicate() bool {
	return r.Existing != nil
}

// Cache is the fingerprint lookup cache the resolver consults before hitting
// the catalog. Entries map fingerprints to canonical media IDs.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Resolver maps (fingerprint, policy) pairs to resolutions. The persistence
// layer remains the source of truth; the cache only short-circuits lookups
// and every hit is validated against the catalog.
type Resolver struct {
	media  repository.MediaRepository
	cache  Cache
	logger zerolog.Logger
}

func NewResolver(media repository.MediaRepository, cache Cache, logger zerolog.Logger) *Resolver {
	return &Resolver{
		media:  media,
		cache:  cache,
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// FindCanonical returns the canonical entry for a fingerprint, or nil if the
// content is unknown.
func (r *Resolver) FindCanonical(ctx context.Context, fingerprint string) (*domain.Media, error) {
	if r.cache != nil {
		if mediaID, ok := r.cache.Get(fingerprint); ok {
			media, err := r.media.GetByID(ctx, mediaID)
			if err == nil && media.Fingerprint == fingerprint && media.IsCanonical() {
				return media, nil
			}
			if err != nil && !errors.Is(err, domain.ErrMediaNotFound) {
				return nil, fmt.Errorf("failed to validate cached entry: %w", err)
			}
			// Stale cache entry; the catalog wins.
			r.logger.Debug().Str("fingerprint", fingerprint).Msg("evicting stale cache entry")
			r.cache.Delete(fingerprint)
		}
	}

	media, err := r.media.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, domain.ErrMediaNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up fingerprint: %w", err)
	}

	if r.cache != nil {
		r.cache.Set(fingerprint, media.ID)
	}
	return media, nil
}

// Resolve decides the action for an incoming fingerprint under the given
// policy.
func (r *Resolver) Resolve(ctx context.Context, fingerprint string, policy domain.DedupPolicy) (Resolution, error) {
	if !policy.Valid() {
		return Resolution{}, fmt.Errorf("%w: %q", domain.ErrInvalidPolicy, policy)
	}

	existing, err := r.FindCanonical(ctx, fingerprint)
	if err != nil {
		return Resolution{}, err
	}
	if existing == nil {
		return Resolution{Action: ActionStore}, nil
	}

	resolution := Resolution{Existing: existing}
	switch policy {
	case domain.PolicyIgnore:
		resolution.Action = ActionDiscard
	case domain.PolicyReference:
		resolution.Action = ActionLink
	case domain.PolicyAlert:
		resolution.Action = ActionAlert
	case domain.PolicyAllow:
		resolution.Action = ActionStoreCopy
	}
	return resolution, nil
}
