package changes

import "strings"

// ParseStatusLine parses one line of `git diff --name-status` output.
//
// Format: <status>\t<path>[\t<newPath>]
//
// Renames and copies resolve to their destination path as KindModified.
// Deletions, type changes, unmerged entries and malformed lines report false.
func ParseStatusLine(line string) (ChangedFile, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return ChangedFile{}, false
	}

	fields := strings.Split(line, "\t")
	status := fields[0]
	if status == "" {
		return ChangedFile{}, false
	}

	switch {
	case status[0] == 'R' || status[0] == 'C':
		if len(fields) < 3 || fields[2] == "" {
			return ChangedFile{}, false
		}
		return ChangedFile{Path: fields[2], Kind: KindModified}, true
	case status == "A":
		if len(fields) < 2 || fields[1] == "" {
			return ChangedFile{}, false
		}
		return ChangedFile{Path: fields[1], Kind: KindAdded}, true
	case status == "M":
		if len(fields) < 2 || fields[1] == "" {
			return ChangedFile{}, false
		}
		return ChangedFile{Path: fields[1], Kind: KindModified}, true
	default:
		return ChangedFile{}, false
	}
}

// ParseStatusOutput parses newline-delimited name-status output.
// The result is unique by path; the first record for a path wins.
func ParseStatusOutput(output string) []ChangedFile {
	var files []ChangedFile
	seen := make(map[string]bool)

	for _, line := range strings.Split(output, "\n") {
		file, ok := ParseStatusLine(line)
		if !ok || seen[file.Path] {
			continue
		}
		seen[file.Path] = true
		files = append(files, file)
	}

	return files
}
