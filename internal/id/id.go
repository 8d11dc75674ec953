// Package id generates opaque identifiers for things the datastore does not
// number itself, such as background job ids.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	size     = 12
)

// Generate returns prefix-<nanoid> using a lowercase alphanumeric alphabet,
// e.g. "rel-4f9k2m0qzx7a".
func Generate(prefix string) (string, error) {
	s, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + s, nil
}

// MustGenerate is like Generate but panics if the system entropy source fails.
func MustGenerate(prefix string) string {
	s, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return s
}
