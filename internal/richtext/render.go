// Package richtext renders structured rich text into HTML.
//
// Only a fixed vocabulary of block kinds and inline marks is emitted as markup.
// Every piece of text is escaped, so document content can never inject tags.
package richtext

import (
	"html"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

// Block kinds.
const (
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
)

// Mark kinds.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
)

var headingTags = map[string]string{
	"heading1": "h1",
	"heading2": "h2",
	"heading3": "h3",
	"heading4": "h4",
	"heading5": "h5",
	"heading6": "h6",
}

// Render turns a rich-text body into an HTML fragment.
func Render(body []model.Span) string {
	var b strings.Builder
	list := ""
	for _, span := range body {
		want := listTag(span.Type)
		if want != list {
			if list != "" {
				b.WriteString("</" + list + ">")
			}
			if want != "" {
				b.WriteString("<" + want + ">")
			}
			list = want
		}

		tag, ok := blockTag(span.Type)
		if !ok {
			// Unknown kinds degrade to a plain escaped paragraph.
			b.WriteString("<p>")
			b.WriteString(escapeText(span.Text, true))
			b.WriteString("</p>")
			continue
		}
		b.WriteString("<" + tag + ">")
		writeInline(&b, span, tag != "pre")
		b.WriteString("</" + tag + ">")
	}
	if list != "" {
		b.WriteString("</" + list + ">")
	}
	return b.String()
}

// PlainText returns the body as unformatted text, one block per paragraph.
func PlainText(body []model.Span) string {
	parts := make([]string, 0, len(body))
	for _, span := range body {
		switch span.Type {
		case ListItem, OListItem:
			parts = append(parts, "• "+span.Text)
		default:
			parts = append(parts, span.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func listTag(kind string) string {
	switch kind {
	case ListItem:
		return "ul"
	case OListItem:
		return "ol"
	}
	return ""
}

func blockTag(kind string) (string, bool) {
	switch kind {
	case "", Paragraph:
		return "p", true
	case Preformatted:
		return "pre", true
	case ListItem, OListItem:
		return "li", true
	}
	tag, ok := headingTags[kind]
	return tag, ok
}

type mark struct {
	start, end int
	kind       string
	href       string
}

func writeInline(b *strings.Builder, span model.Span, breaks bool) {
	units := utf16.Encode([]rune(span.Text))
	marks := normalizeMarks(span.Marks, len(units))
	writeRange(b, units, 0, len(units), marks, breaks)
}

// normalizeMarks drops unknown or empty marks, clamps offsets and orders
// marks so that enclosing ranges come before the ranges they contain.
func normalizeMarks(in []model.Mark, n int) []mark {
	out := make([]mark, 0, len(in))
	for _, m := range in {
		start, end := clamp(m.Start, n), clamp(m.End, n)
		if start >= end {
			continue
		}
		switch m.Type {
		case Strong, Em:
			out = append(out, mark{start: start, end: end, kind: m.Type})
		case Hyperlink:
			out = append(out, mark{start: start, end: end, kind: m.Type, href: safeHref(m.URL)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end > out[j].end
	})
	return out
}

// writeRange writes units[from:to] with marks, all of which start inside the range.
// A mark overlapping the end of its enclosing mark is clipped to it.
func writeRange(b *strings.Builder, units []uint16, from, to int, marks []mark, breaks bool) {
	pos := from
	for i := 0; i < len(marks); {
		m := marks[i]
		if m.start < pos {
			m.start = pos
		}
		if m.end > to {
			m.end = to
		}
		j := i + 1
		for j < len(marks) && marks[j].start < m.end {
			j++
		}
		if m.start >= m.end {
			i = j
			continue
		}

		b.WriteString(escapeText(string(utf16.Decode(units[pos:m.start])), breaks))
		open, closing := markTags(m)
		b.WriteString(open)
		writeRange(b, units, m.start, m.end, marks[i+1:j], breaks)
		b.WriteString(closing)

		pos = m.end
		i = j
	}
	b.WriteString(escapeText(string(utf16.Decode(units[pos:to])), breaks))
}

func markTags(m mark) (string, string) {
	switch m.kind {
	case Strong:
		return "<strong>", "</strong>"
	case Em:
		return "<em>", "</em>"
	case Hyperlink:
		if m.href == "" {
			return "", ""
		}
		return `<a href="` + html.EscapeString(m.href) + `" rel="noopener noreferrer">`, "</a>"
	}
	return "", ""
}

// safeHref returns raw if it is an http(s), mailto or site-relative link.
func safeHref(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return raw
	case "":
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return raw
		}
	}
	return ""
}

func escapeText(s string, breaks bool) string {
	s = html.EscapeString(s)
	if breaks {
		s = strings.ReplaceAll(s, "\n", "<br />")
	}
	return s
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
