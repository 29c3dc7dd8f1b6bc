// Package reconcile keeps local labels, groups and schedules consistent with
// the remote calendar provider and with each other.
//
// The remote provider is authoritative for remote-sourced records. Each sync
// run fetches the full remote state once, reconciles labels and then events,
// and deletes local records whose external ids disappeared upstream. Groups
// and labels are mirrored by name through Mirror, whose cascades are bounded
// by a guard carried in the context.
package reconcile

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultColor is returned by MapColor for unknown or empty tokens.
const DefaultColor = "#0078D4"

// maxDescriptionLen is measured in runes and includes the ellipsis of a cut
// description.
const maxDescriptionLen = 2000

const ellipsis = "..."

// presetColors maps the provider's category color tokens to display colors.
var presetColors = map[string]string{
	"none":     DefaultColor,
	"preset0":  "#E74856", // red
	"preset1":  "#FF8C00", // orange
	"preset2":  "#AB7B50", // brown
	"preset3":  "#FFF100", // yellow
	"preset4":  "#47D041", // green
	"preset5":  "#30C6CC", // teal
	"preset6":  "#73AA24", // olive
	"preset7":  "#4A90E2", // blue
	"preset8":  "#8764B8", // purple
	"preset9":  "#F495BF", // cranberry
	"preset10": "#A0AEB2", // steel
	"preset11": "#4C596E", // dark steel
	"preset12": "#ABABAB", // gray
	"preset13": "#666666", // dark gray
	"preset14": "#474747", // black
	"preset15": "#750B1C", // dark red
	"preset16": "#CA5010", // dark orange
	"preset17": "#855A3A", // dark brown
	"preset18": "#C19C00", // dark yellow
	"preset19": "#107C10", // dark green
	"preset20": "#038387", // dark teal
	"preset21": "#498205", // dark olive
	"preset22": "#003966", // dark blue
	"preset23": "#5C2E91", // dark purple
	"preset24": "#A4262C", // dark cranberry
}

// MapColor returns the display color for a provider color token. Unknown
// tokens map to DefaultColor.
func MapColor(token string) string {
	if c, ok := presetColors[strings.ToLower(strings.TrimSpace(token))]; ok {
		return c
	}
	return DefaultColor
}

// htmlTagNames are the elements removed as markup. Anything else between
// angle brackets is kept as text.
const htmlTagNames = `a|abbr|address|article|aside|b|base|bdi|bdo|big|blockquote|body|br|button|caption|center|cite|code|col|colgroup|dd|del|details|dfn|div|dl|dt|em|figcaption|figure|font|footer|form|h[1-6]|head|header|hr|html|i|iframe|img|input|ins|kbd|label|li|link|main|mark|meta|nav|o:p|ol|p|pre|q|s|samp|section|small|span|strike|strong|sub|summary|sup|svg|table|tbody|td|tfoot|th|thead|time|title|tr|tt|u|ul|var|wbr`

var (
	breakTags = regexp.MustCompile(`(?i)<\s*(br|/p|/li|/div|/tr|/h[1-6]|/header|/footer|/section|/article|/blockquote|/pre|/ul|/ol|/table)\s*/?\s*>`)
	anyTag    = regexp.MustCompile(`(?i)</?(?:` + htmlTagNames + `)(?:\s[^<>]*)?/?>|<![^<>]*>`)
	// Comments, scripts and styles carry no readable text.
	invisible = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<!--.*?-->`),
		regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`),
		regexp.MustCompile(`(?is)<\s*style\b[^>]*>.*?<\s*/\s*style\s*>`),
		regexp.MustCompile(`(?is)<\s*head\b[^>]*>.*?<\s*/\s*head\s*>`),
	}
	spaceRuns   = regexp.MustCompile(`[ \t\f\v]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&amp;", "&",
)

// StripMarkup converts an HTML body to plain text. Line-break, paragraph
// and list markup become newlines, known HTML tags are dropped and a fixed set
// of entities is decoded. The result goes through NormalizeText. Text without
// markup passes through unchanged apart from that normalization.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '<') {
		for _, re := range invisible {
			s = re.ReplaceAllString(s, "")
		}
		s = breakTags.ReplaceAllString(s, "\n")
		s = anyTag.ReplaceAllString(s, "")
	}
	if strings.ContainsRune(s, '&') {
		s = entities.Replace(s)
	}
	return NormalizeText(s)
}

// NormalizeText unifies line endings, collapses blank runs and trims every
// line. The result is capped at 2000 runes, the last three of which are "..."
// when the text was cut.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	return truncate(s, maxDescriptionLen)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit-len(ellipsis)]), isSpace) + ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
