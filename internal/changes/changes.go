// Package changes defines the changed-file records produced from a branch
// diff and the parser that builds them from git's name-status output.
package changes

import "strings"

// Kind classifies a changed file relative to the base reference.
type Kind int

const (
	// KindModified indicates the file exists on both sides and differs.
	// Renames and copies are reported as modifications of the destination.
	KindModified Kind = iota
	// KindAdded indicates the file does not exist on the base reference.
	KindAdded
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindModified:
		return "modified"
	case KindAdded:
		return "added"
	default:
		return "unknown"
	}
}

// ChangedFile is a single file that differs from the base reference.
type ChangedFile struct {
	// Path is the slash-separated path relative to the repository root.
	Path string

	// Kind is the change classification.
	Kind Kind
}

// Paths returns the paths of files in order.
func Paths(files []ChangedFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// Author is a commit identity.
type Author struct {
	Email string
	Name  string
}

// IsZero reports whether neither email nor name is set.
func (a Author) IsZero() bool {
	return strings.TrimSpace(a.Email) == "" && strings.TrimSpace(a.Name) == ""
}

// Matches reports whether other is the same identity as a.
// Email decides when a carries one; otherwise names are compared.
// Comparison is trimmed and case-insensitive, and empty values never match.
func (a Author) Matches(other Author) bool {
	if email := strings.TrimSpace(a.Email); email != "" {
		return equalFold(email, other.Email)
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return equalFold(name, other.Name)
	}
	return false
}

func equalFold(want, got string) bool {
	got = strings.TrimSpace(got)
	return got != "" && strings.EqualFold(want, got)
}
