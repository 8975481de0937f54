package source

import (
	"errors"
	"fmt"
	"strings"
)

// Artifact is a concrete file to place in the target directory. It is
// built fresh for every build and never persisted.
type Artifact struct {
	Name     string // mod name
	URL      string
	Filename string // on-disk key, unique within a build
	Hash     string // lower-case hex sha-512, empty when unknown
}

// HasHash reports whether the artifact carries a verifiable identity.
func (a Artifact) HasHash() bool {
	return a.Hash != ""
}

// PlainFilename reports whether name can be used as a file directly inside
// a directory: non-empty, no path separators, and not "." or "..".
func PlainFilename(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Filters narrow registry version listings.
type Filters struct {
	Loader      string
	GameVersion string
}

var (
	// ErrInvalidReference is a malformed identifier, rejected before any request.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrMalformedReference is a reference without a usable file name.
	ErrMalformedReference = errors.New("malformed reference")
	// ErrVersionNotFound means no registry version matched the reference.
	ErrVersionNotFound = errors.New("version not found")
	// ErrRegistryUnavailable is a transport or server failure, possibly transient.
	ErrRegistryUnavailable = errors.New("registry unavailable")
)

// ModError attaches the mod name to a resolution failure.
type ModError struct {
	Mod  string
	Op   string
	Err  error
	Hint string
}

func (e *ModError) Error() string {
	msg := fmt.Sprintf("mod '%s': %s failed: %s", e.Mod, e.Op, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *ModError) Unwrap() error {
	return e.Err
}
