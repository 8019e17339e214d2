package dispatch

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxOutputChars caps raw provider output before it is stored or formatted.
	DefaultMaxOutputChars = 4000

	// maxMessageChars keeps formatted HTML under Telegram's 4096 limit.
	maxMessageChars = 4080

	progressCells = 10

	ellipsis  = "..."
	closeBold = "</b>"
)

var (
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reHeading    = regexp.MustCompile(`(?m)^#+\s*(.+)$`)
	reNumbered   = regexp.MustCompile(`(\d+)\)\s*`)
	reLineNumber = regexp.MustCompile(`(?m)^(\d+)\s*\)`)
	reHashes     = regexp.MustCompile(`(?m)^#+\s*`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	sectionHeadings = strings.NewReplacer(
		"АБЗАЦ 1 —", "\n\n<b>📋 Что произошло и что это значит</b>\n\n",
		"АБЗАЦ 2 —", "\n\n<b>💊 Рекомендации: что делать и чего не делать</b>\n\n",
	)
)

// TruncateOutput cuts s to max runes, ending with "..." when cut.
// Limits too small for the ellipsis cut without it.
func TruncateOutput(s string, max int) string {
	if max <= 0 {
		max = DefaultMaxOutputChars
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= len(ellipsis) {
		return string(r[:max])
	}
	return string(r[:max-len(ellipsis)]) + ellipsis
}

// truncateHTML cuts formatted HTML to max runes without leaving a partial
// tag or entity at the end, closing a dangling <b>.
func truncateHTML(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	cut := string([]rune(s)[:max-len(ellipsis)-len(closeBold)])
	if i := strings.LastIndexByte(cut, '<'); i > strings.LastIndexByte(cut, '>') {
		cut = cut[:i]
	}
	if i := strings.LastIndexByte(cut, '&'); i > strings.LastIndexByte(cut, ';') {
		cut = cut[:i]
	}
	cut = strings.TrimRight(cut, " \n")
	if strings.Count(cut, "<b>") > strings.Count(cut, closeBold) {
		cut += closeBold
	}
	return cut + ellipsis
}

// FormatConclusion renders provider output as Telegram HTML: escaped text,
// bold emphasis, section and markdown headings, keycap numbering.
func FormatConclusion(raw string) string {
	if utf8.RuneCountInString(raw) > DefaultMaxOutputChars {
		raw = string([]rune(raw)[:DefaultMaxOutputChars])
	}
	s := htmlEscaper.Replace(raw)
	s = reBold.ReplaceAllString(s, "<b>${1}</b>")
	s = sectionHeadings.Replace(s)
	s = reHeading.ReplaceAllString(s, "\n<b>${1}</b>\n")
	s = reNumbered.ReplaceAllString(s, "\n${1}️⃣ ")
	s = reLineNumber.ReplaceAllString(s, "${1}️⃣")
	s = reHashes.ReplaceAllString(s, "")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return truncateHTML(s, maxMessageChars)
}

// ProgressBar renders pct as ten cells, e.g. "[█████░░░░░] 50%".
func ProgressBar(pct int) string {
	filled := int(math.Round(float64(progressCells*pct) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > progressCells {
		filled = progressCells
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressCells-filled) + "] " + strconv.Itoa(pct) + "%"
}

// ProgressText is the full body of the progress message.
func ProgressText(pct int) string {
	return textProgressTitle + "\n\n" + ProgressBar(pct)
}
