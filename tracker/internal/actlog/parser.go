// CLAUDE:SUMMARY Sanitizes raw activity-log markup and splits each list item into timestamp text and XP.
// Package actlog turns the raw activity-log markup of a profile page into
// (timestamp text, XP) tokens.
//
// The log is a list of short free-text items shaped like
// "2024-01-01 10:00:00 · 20 XP". Items that do not fit are dropped and
// counted; parsing never fails as a whole.
package actlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Token is one candidate event, not yet interpreted as a time.
type Token struct {
	RawTimestampText string
	XP               int
	// Line is the index of the source item in DOM order.
	Line int
}

// SkipReason explains why a line was dropped.
type SkipReason string

const (
	SkipNoSeparator    SkipReason = "no_separator"
	SkipEmptyTimestamp SkipReason = "empty_timestamp"
	SkipNoXP           SkipReason = "no_xp"
)

// LineError records a dropped candidate line.
type LineError struct {
	Line   int
	Text   string
	Reason SkipReason
}

func (e *LineError) Error() string {
	return fmt.Sprintf("actlog: line %d %s: %q", e.Line, e.Reason, e.Text)
}

// Stats counts what Parse saw and dropped.
type Stats struct {
	Lines      int // list items seen
	Candidates int // items containing "XP"
	Tokens     int
	Skipped    []*LineError
}

// Dropped returns the number of candidate lines that produced no token.
func (s Stats) Dropped() int { return len(s.Skipped) }

// Count returns the number of skipped lines with the given reason.
func (s Stats) Count(reason SkipReason) int {
	n := 0
	for _, e := range s.Skipped {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

var xpRe = regexp.MustCompile(`(\d+)\s*XP`)

// listPolicy keeps list structure and inline text, nothing executable and
// no attributes.
var listPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("ul", "ol", "li", "span", "b", "strong", "i", "em", "small", "br")
	return p
}()

// Parse extracts tokens from raw log markup, in DOM order.
func Parse(markup string) ([]Token, Stats) {
	var stats Stats

	doc, err := html.Parse(strings.NewReader(listPolicy.Sanitize(markup)))
	if err != nil {
		// x/net/html only fails on reader errors; a strings.Reader has none.
		return nil, stats
	}

	var tokens []Token
	items := goquery.NewDocumentFromNode(doc).Find("li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("li").Length() == 0
	})
	items.Each(func(i int, s *goquery.Selection) {
		stats.Lines++
		text := itemText(s)
		if !strings.Contains(text, "XP") {
			return
		}
		stats.Candidates++

		tok, reason := parseLine(text)
		if reason != "" {
			stats.Skipped = append(stats.Skipped, &LineError{Line: i, Text: text, Reason: reason})
			return
		}
		tok.Line = i
		tokens = append(tokens, tok)
	})

	stats.Tokens = len(tokens)
	return tokens, stats
}

// parseLine splits one candidate line. A non-empty reason means the line
// is dropped.
func parseLine(text string) (Token, SkipReason) {
	before, after, ok := splitFirst(text, Separators)
	if !ok {
		return Token{}, SkipNoSeparator
	}
	ts := strings.TrimSpace(before)
	if ts == "" {
		return Token{}, SkipEmptyTimestamp
	}
	m := xpRe.FindStringSubmatch(after)
	if m == nil {
		return Token{}, SkipNoXP
	}
	xp, err := strconv.Atoi(m[1])
	if err != nil || xp <= 0 {
		return Token{}, SkipNoXP
	}
	return Token{RawTimestampText: ts, XP: xp}, ""
}

// itemText joins the item's text nodes, each trimmed, with single spaces.
func itemText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
