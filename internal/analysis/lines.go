package analysis

import "strings"

// SplitLines splits s on any line boundary: \n, \r, \r\n, \v, \f, the
// file/group/record separators (\x1c-\x1e), NEL, LS and PS. A trailing
// boundary does not produce an empty final line, and "" yields no lines.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); {
		width := lineBreakAt(s, i)
		if width == 0 {
			i++
			continue
		}
		lines = append(lines, s[start:i])
		i += width
		start = i
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// lineBreakAt returns the byte width of the line boundary starting at
// s[i], or 0.
func lineBreakAt(s string, i int) int {
	switch c := s[i]; c {
	case '\r':
		if i+1 < len(s) && s[i+1] == '\n' {
			return 2
		}
		return 1
	case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e':
		return 1
	case 0xC2: // U+0085
		if i+1 < len(s) && s[i+1] == 0x85 {
			return 2
		}
	case 0xE2: // U+2028, U+2029
		if i+2 < len(s) && s[i+1] == 0x80 && (s[i+2] == 0xA8 || s[i+2] == 0xA9) {
			return 3
		}
	}
	return 0
}

// nonBlankLines counts lines with any non-whitespace content.
func nonBlankLines(s string) int {
	n := 0
	for _, line := range SplitLines(s) {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
