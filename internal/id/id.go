// Package id mints record identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ReelPrefix marks identifiers of stored reels.
const ReelPrefix = "reel"

// Alphanumerics only, so an id never contains the "-" that separates the
// prefix and stays readable in dashboard URLs.
const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	size     = 16
)

// Generate returns prefix + "-" + a random alphanumeric suffix.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return prefix + "-" + suffix, nil
}

// NewReelID panics only if the system entropy source fails.
func NewReelID() string {
	id, err := Generate(ReelPrefix)
	if err != nil {
		panic(err)
	}
	return id
}
