package util

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
)

// MakeHyperlink wraps text in an OSC 8 link terminated with BEL. An empty
// url leaves text as is.
func MakeHyperlink(url, text string) string {
	if url == "" {
		return text
	}
	return fmt.Sprintf("\033]8;;%s\a%s\033]8;;\a", url, text)
}

// TruncateText shortens s to maxLen terminal cells, ending in "…" when cut.
// Wide runes count as two cells. maxLen <= 0 disables truncation.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 || ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "…")
}
