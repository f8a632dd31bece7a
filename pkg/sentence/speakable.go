package sentence

import (
	"regexp"
	"strings"
	"unicode"
)

// Patterns for text that must never reach the synthesizer.
var (
	// vcsStatusCode matches a version-control status code, the 1-3 letter
	// prefix in lines like "M pkg/vad/energy.go" or "?? notes.txt".
	vcsStatusCode = regexp.MustCompile(`^[A-Za-z?]{1,3}$`)

	// shellFlags matches a bare command with flag arguments,
	// e.g. "ls -la" or "go test -run TestBuffer".
	shellFlags = regexp.MustCompile(`^\S+(\s+\S+)*\s+--?[A-Za-z][\w-]*`)

	// yamlKeyValue matches an unquoted "key: value" line.
	yamlKeyValue = regexp.MustCompile(`^[\w.-]+:\s+\S`)
)

// Speakable reports whether a completed segment is natural-language prose
// safe to synthesize. It is a pure function over the segment text.
func Speakable(segment string) bool {
	s := strings.TrimSpace(segment)
	if s == "" {
		return false
	}

	// Fence markers must never leak through.
	if strings.Contains(s, fence) {
		return false
	}

	// Segments without a single letter are noise (digits, punctuation).
	if !hasAlpha(s) {
		return false
	}

	// Shell prompts and invocations.
	if strings.HasPrefix(s, "$ ") || strings.HasPrefix(s, "> ") {
		return false
	}
	if shellFlags.MatchString(s) {
		return false
	}

	// Version-control status lines: short code followed by one path.
	if fields := strings.Fields(s); len(fields) == 2 &&
		vcsStatusCode.MatchString(fields[0]) && looksLikePath(fields[1]) {
		return false
	}

	// A lone path-like token.
	if isPathToken(s) {
		return false
	}

	// A line where every word looks like a path is a file listing.
	if isFileList(s) {
		return false
	}

	// JSON or YAML shaped lines.
	if isStructured(s) {
		return false
	}

	return true
}

func hasAlpha(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// isPathToken reports whether s is a single token with at least two path
// separators and no spaces, e.g. "internal/config/config.go".
func isPathToken(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.Count(s, "/")+strings.Count(s, "\\") >= 2
}

// looksLikePath reports whether a single word resembles a file path.
func looksLikePath(w string) bool {
	w = strings.TrimRight(w, ".,;")
	return strings.ContainsAny(w, "/\\") || hasExtension(w)
}

// isFileList reports whether every word in s looks like a file path.
func isFileList(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !looksLikePath(w) {
			return false
		}
	}
	return true
}

// hasExtension reports whether w ends in a short file extension.
func hasExtension(w string) bool {
	dot := strings.LastIndexByte(w, '.')
	if dot <= 0 || dot == len(w)-1 {
		return false
	}
	ext := w[dot+1:]
	if len(ext) > 4 {
		return false
	}
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isStructured reports whether s looks like JSON or YAML rather than prose.
func isStructured(s string) bool {
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return true
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return true
	}
	// Unquoted "key: value" without terminal punctuation.
	if yamlKeyValue.MatchString(s) && !strings.ContainsAny(s[len(s)-1:], ".?!") {
		return true
	}
	return false
}
