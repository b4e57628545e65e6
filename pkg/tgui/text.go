package tgui

// TruncRunes cuts s to at most n runes, ending with "…" when anything was
// dropped. Byte offsets from range keep multi-byte runes intact.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	seen := 0
	for i := range s {
		if seen == n {
			return s[:i] + "…"
		}
		seen++
	}
	return s
}
