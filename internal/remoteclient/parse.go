package remoteclient

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// percentPattern matches a decimal percentage such as "42%" anywhere in a
// line of CLI output.
var percentPattern = regexp.MustCompile(`\d+%`)

// lineEntryPattern matches the line-based ListFiles fallback format:
// "name<space>+digits<space>bytes".
var lineEntryPattern = regexp.MustCompile(`^(.+?)\s+(\d+)\s+bytes$`)

// extractPercents returns every "NN%" match in output, in order.
func extractPercents(output string) []int {
	matches := percentPattern.FindAllString(output, -1)

	percents := make([]int, 0, len(matches))

	for _, m := range matches {
		digits := strings.TrimSuffix(m, "%")

		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}

		percents = append(percents, n)
	}

	return percents
}

// looksLikeFailure applies the blanket rule: any output containing the
// case-insensitive substring "error" or "failed" is a failure, except
// CreateFolder, which treats "already exists" as success.
func looksLikeFailure(output string, isCreateFolder bool) bool {
	lower := strings.ToLower(output)

	if isCreateFolder && strings.Contains(lower, "already exists") {
		return false
	}

	return strings.Contains(lower, "error") || strings.Contains(lower, "failed")
}

// parseListFiles runs a two-tier ListFiles parse: JSON first (array or
// single object), falling back to line-based parsing.
func parseListFiles(output string) []RemoteFileEntry {
	trimmed := strings.TrimSpace(output)

	if trimmed == "" {
		return nil
	}

	if entries, ok := tryParseJSON(trimmed); ok {
		return entries
	}

	return parseLines(trimmed)
}

func tryParseJSON(trimmed string) ([]RemoteFileEntry, bool) {
	var arr []RemoteFileEntry
	if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
		return arr, true
	}

	var single RemoteFileEntry
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		return []RemoteFileEntry{single}, true
	}

	return nil, false
}

// parseLines implements the line-based fallback: a line ending in "/" is a
// folder; "name<space>+digits<space>bytes" is a file; anything else is
// ignored.
func parseLines(trimmed string) []RemoteFileEntry {
	lines := strings.Split(trimmed, "\n")
	entries := make([]RemoteFileEntry, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, "/") {
			name := strings.TrimSuffix(line, "/")
			entries = append(entries, RemoteFileEntry{Name: name, Path: line, IsFolder: true})

			continue
		}

		if m := lineEntryPattern.FindStringSubmatch(line); m != nil {
			size, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				continue
			}

			entries = append(entries, RemoteFileEntry{Name: m[1], Path: m[1], SizeBytes: size})
		}
	}

	return entries
}
