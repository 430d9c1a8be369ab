package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/branchtabs/internal/changes"
)

// Markers framing the author line of each commit in the history query.
const (
	authorMarker    = "\x01"
	authorSeparator = "\x02"
)

// LatestAuthors returns, for each of paths, the author of the most recent
// commit reachable from HEAD that touched it. Paths never touched by a
// commit are absent from the result.
func (r *Repository) LatestAuthors(ctx context.Context, paths []string) (map[string]changes.Author, error) {
	if len(paths) == 0 {
		return map[string]changes.Author{}, nil
	}

	args := []string{
		"log", "-z", "--name-only", "--no-color",
		"--format=%x01%ae%x02%an",
		"HEAD", "--",
	}
	args = append(args, paths...)

	output, err := r.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("log authors: %w", err)
	}
	return parseAuthorLog(output, paths), nil
}

// parseAuthorLog walks newest-first log output and records the first author
// seen for each wanted path, stopping once every wanted path has one.
//
// Records are NUL-delimited; an author line starts with authorMarker and may
// share a record with the first path of that commit.
func parseAuthorLog(output string, paths []string) map[string]changes.Author {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}

	found := make(map[string]changes.Author, len(want))
	var current changes.Author
	haveAuthor := false

	for _, record := range strings.Split(output, "\x00") {
		for _, line := range strings.Split(record, "\n") {
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, authorMarker) {
				email, name, _ := strings.Cut(strings.TrimPrefix(line, authorMarker), authorSeparator)
				current = changes.Author{Email: email, Name: name}
				haveAuthor = true
				continue
			}

			if !haveAuthor || !want[line] {
				continue
			}
			if _, ok := found[line]; ok {
				continue
			}
			found[line] = current
			if len(found) == len(want) {
				return found
			}
		}
	}

	return found
}
