package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	anchorRe      = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>`)
	anchorCloseRe = regexp.MustCompile(`(?i)</a\s*>`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	spacesRe      = regexp.MustCompile(`[^\S\n]+`)
	brRe          = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	blockCloseRe  = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|blockquote|pre|table|tr)\s*>`)
	blockOpenRe   = regexp.MustCompile(`(?i)<(?:p|div|h[1-6]|blockquote|pre|table|tr)(?:\s[^>]*)?\s*>`)
	liOpenRe      = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?\s*>`)
	liCloseRe     = regexp.MustCompile(`(?i)</li\s*>`)
	listWrapRe    = regexp.MustCompile(`(?i)</?(?:ul|ol)(?:\s[^>]*)?\s*>`)
	styleRe       = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(?:style|script)\s*>`)
)

// LooksLikeHTML reports whether s contains markup worth stripping.
func LooksLikeHTML(s string) bool {
	return tagRe.MatchString(s)
}

// HTMLToText converts an HTML event body to terminal text. Links become
// OSC 8 hyperlinks whose text is truncated to width (<= 0 disables it).
func HTMLToText(s string, width int) string {
	return render(s, func(href, text string) string {
		if text == "" {
			text = href
		}
		if width > 0 {
			text = TruncateText(text, width)
		}
		return MakeHyperlink(href, text)
	})
}

// PlainText converts an HTML event body to plain text, keeping every
// link target visible as "text <url>" so URLs can still be scanned.
func PlainText(s string) string {
	return render(s, func(href, text string) string {
		if text == "" || text == href {
			return " " + href + " "
		}
		return text + " <" + href + "> "
	})
}

func render(s string, link func(href, text string) string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = styleRe.ReplaceAllString(s, "")

	s = brRe.ReplaceAllString(s, "\n")
	s = blockCloseRe.ReplaceAllString(s, "\n\n")
	s = blockOpenRe.ReplaceAllString(s, "\n")

	s = listWrapRe.ReplaceAllString(s, "")
	s = liOpenRe.ReplaceAllString(s, "\n  • ")
	s = liCloseRe.ReplaceAllString(s, "")

	s = replaceLinks(s, link)
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "• ") {
			lines[i] = "  " + trimmed
		} else {
			lines[i] = trimmed
		}
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

func replaceLinks(s string, link func(href, text string) string) string {
	for {
		open := anchorRe.FindStringSubmatchIndex(s)
		if open == nil {
			return s
		}

		href := unwrapRedirect(html.UnescapeString(s[open[2]:open[3]]))
		rest := s[open[1]:]

		close := anchorCloseRe.FindStringIndex(rest)
		if close == nil {
			// malformed, drop the opening tag
			s = s[:open[0]] + rest
			continue
		}

		text := strings.TrimSpace(tagRe.ReplaceAllString(rest[:close[0]], ""))
		s = s[:open[0]] + link(href, text) + rest[close[1]:]
	}
}

// unwrapRedirect extracts the real URL from Google and Outlook safe-link
// wrappers.
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	switch {
	case u.Host == "www.google.com" && u.Path == "/url":
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	case strings.HasSuffix(u.Host, "safelinks.protection.outlook.com"):
		if q := u.Query().Get("url"); q != "" {
			return q
		}
	}
	return rawURL
}
