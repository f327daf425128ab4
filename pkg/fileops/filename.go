package fileops

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// invalidFilenameChars are characters rejected in filenames on at least one
// supported platform. The policy is applied uniformly so filenames judged
// safe here stay safe when the payload moves between systems.
const invalidFilenameChars = `<>:"|?*`

// maxFilenameBytes is the longest filename SanitizeFilename produces. Common
// filesystems cap a single name component at 255 bytes.
const maxFilenameBytes = 255

// IsSafeFilename reports whether name is acceptable as a single filename
// component.
//
// It rejects:
//   - the empty string
//   - members of the forbidden-name set (".", "..", and Windows device
//     names, matched case-sensitively)
//   - names containing path separators ("/" or "\")
//   - names containing null bytes or ASCII control characters (0-31)
//   - names containing any of < > : " | ? *
//
// Usage example:
//
//	cfg := fileops.DefaultSecurityConfig()
//	if !cfg.IsSafeFilename(userInput) {
//	    return fmt.Errorf("%w: %q", fileops.ErrInvalidName, userInput)
//	}
func (c *SecurityConfig) IsSafeFilename(name string) bool {
	if name == "" {
		return false
	}
	if _, forbidden := c.ForbiddenNames[name]; forbidden {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.ContainsAny(name, invalidFilenameChars) {
		return false
	}
	for _, r := range name {
		if r < 0x20 {
			return false
		}
	}
	return true
}

// SanitizeFilename rewrites name into a safe filename component, replacing
// dangerous characters with an underscore. See SanitizeFilenameWith.
func SanitizeFilename(name string) string {
	return SanitizeFilenameWith(name, '_')
}

// SanitizeFilenameWith rewrites name into a safe filename component:
//
//   - null bytes are stripped
//   - the name is split on path separators ("/" and "\") and only the final
//     segment is kept, which defeats embedded "../" sequences
//   - characters from < > : " | ? * and ASCII control characters (0-31) are
//     replaced with replacement
//   - leading and trailing dots and spaces are trimmed
//   - an empty result becomes "unnamed"
//   - the result is truncated to 255 bytes, keeping the extension when possible
//
// The function is idempotent: sanitizing an already-sanitized name returns it
// unchanged. A replacement rune that is itself unsafe falls back to '_' so
// idempotence cannot be broken by the caller.
//
// Usage example:
//
//	fileops.SanitizeFilename("../../../etc/passwd") // "passwd"
//	fileops.SanitizeFilename("re:port?.txt")        // "re_port_.txt"
func SanitizeFilenameWith(name string, replacement rune) string {
	if replacement < 0x20 || replacement == '/' || replacement == '\\' ||
		strings.ContainsRune(invalidFilenameChars, replacement) {
		replacement = '_'
	}

	name = strings.ReplaceAll(name, "\x00", "")

	// Keep only the final path segment.
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidFilenameChars, r) {
			b.WriteRune(replacement)
		} else {
			b.WriteRune(r)
		}
	}
	name = strings.Trim(b.String(), ". ")

	name = truncateFilename(name, maxFilenameBytes)
	name = strings.Trim(name, ". ")

	if name == "" {
		return "unnamed"
	}
	return name
}

// truncateFilename shortens name to at most limit bytes, preserving the
// extension when it fits, and never splits a UTF-8 sequence.
func truncateFilename(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	ext := filepath.Ext(name)
	if ext != "" && len(ext) < limit {
		stem := name[:len(name)-len(ext)]
		return cutAtRuneBoundary(stem, limit-len(ext)) + ext
	}
	return cutAtRuneBoundary(name, limit)
}

// cutAtRuneBoundary truncates s to at most n bytes without producing a
// partial UTF-8 sequence.
func cutAtRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
