package registry

import (
	"errors"
	"regexp"
)

var (
	// ErrNotFound means the registry answered but has no such entity.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable covers transport, server, and decoding failures.
	ErrUnavailable = errors.New("registry unavailable")
	// ErrInvalidID is returned before any request for malformed ids and slugs.
	ErrInvalidID = errors.New("invalid slug or id")
)

var (
	versionIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)
	projectSlugPattern = regexp.MustCompile(`^[\w!@$()` + "`" + `.+,"\-']{3,64}$`)
)

// IsVersionID reports whether s has the shape of a Modrinth version id.
func IsVersionID(s string) bool {
	return versionIDPattern.MatchString(s)
}

// IsProjectSlug reports whether s is a valid project slug or id.
func IsProjectSlug(s string) bool {
	return projectSlugPattern.MatchString(s)
}

// Project is the subset of a Modrinth project used by niter.
type Project struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	ProjectType string   `json:"project_type"`
	Versions    []string `json:"versions"`
}

// Version is a single published version of a project.
type Version struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	Name          string   `json:"name"`
	VersionNumber string   `json:"version_number"`
	GameVersions  []string `json:"game_versions"`
	Loaders       []string `json:"loaders"`
	Files         []File   `json:"files"`
}

// File is one downloadable file of a version.
type File struct {
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"`
}

// PrimaryFile returns the file flagged primary, or the first file when
// none is flagged. It returns false only for versions without files.
func (v *Version) PrimaryFile() (File, bool) {
	for _, f := range v.Files {
		if f.Primary {
			return f, true
		}
	}
	if len(v.Files) > 0 {
		return v.Files[0], true
	}
	return File{}, false
}
