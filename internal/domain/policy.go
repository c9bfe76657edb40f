package domain

import (
	"fmt"
	"strings"
)

// DedupPolicy controls what happens when an ingested file's fingerprint
// already exists in the catalog.
type DedupPolicy string

const (
	// PolicyIgnore drops the incoming file silently; the existing entry wins.
	PolicyIgnore DedupPolicy = "IGNORE"

	// PolicyReference links the incoming file's context (collection, custom
	// metadata) to the existing entry without storing a second blob. This is
	// the default.
	PolicyReference DedupPolicy = "REFERENCE"

	// PolicyAlert returns the existing entry and flags the duplicate without
	// committing any membership change; the caller decides what to do with it.
	PolicyAlert DedupPolicy = "ALERT"

	// PolicyAllow stores a forced physical copy alongside the canonical blob.
	PolicyAllow DedupPolicy = "ALLOW"
)

// DefaultPolicy is used when the caller does not specify one.
const DefaultPolicy = PolicyReference

// ParsePolicy parses a policy name case-insensitively. An empty name yields
// the default policy.
func ParsePolicy(name string) (DedupPolicy, error) {
	if name == "" {
		return DefaultPolicy, nil
	}

	policy := DedupPolicy(strings.ToUpper(name))
	if !policy.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}
	return policy, nil
}

// Valid reports whether the policy is one of the known values.
func (p DedupPolicy) Valid() bool {
	switch p {
	case PolicyIgnore, PolicyReference, PolicyAlert, PolicyAllow:
		return true
	}
	return false
}
