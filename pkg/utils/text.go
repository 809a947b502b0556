package utils

// TruncateRunes shortens s to at most max runes, appending "…" when it
// cuts. Slicing runes instead of bytes keeps multi-byte characters intact.
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
