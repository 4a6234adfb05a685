// Package id generates prefixed unique identifiers for transient work,
// such as download jobs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed NanoID, e.g. "dl-V1StGXR8_Z5jdHi6B-myT".
// NanoIDs are URL-safe and compact, which keeps them readable in logs.
// Fails only when the system cannot provide secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is Generate for callers that cannot proceed without an id;
// it panics on entropy failure.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
