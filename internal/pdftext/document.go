package pdftext

import (
	"context"
	"strings"
)

// Span is a run of text sharing one font and size.
type Span struct {
	Text string  `json:"text"`
	Size float64 `json:"size"`
	Bold bool    `json:"bold"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type Line struct {
	Spans []Span `json:"spans"`
}

func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// MaxSize is the largest span font size on the line.
func (l Line) MaxSize() float64 {
	var m float64
	for _, s := range l.Spans {
		if s.Size > m {
			m = s.Size
		}
	}
	return m
}

// Bold reports whether more than half of the line's spans are bold.
func (l Line) Bold() bool {
	if len(l.Spans) == 0 {
		return false
	}
	n := 0
	for _, s := range l.Spans {
		if s.Bold {
			n++
		}
	}
	return float64(n)/float64(len(l.Spans)) > 0.5
}

// Block is a visually contiguous group of lines.
type Block struct {
	Lines []Line `json:"lines"`
}

func (b Block) Text() string {
	parts := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		parts = append(parts, l.Text())
	}
	return strings.Join(parts, "\n")
}

type Page struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Document struct {
	Path  string `json:"path"`
	Pages []Page `json:"pages"`
}

func (d Document) PageTexts() []string {
	out := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		out = append(out, p.Text)
	}
	return out
}

// FullText joins every page with a newline so that page breaks stay line breaks.
func (d Document) FullText() string {
	return strings.Join(d.PageTexts(), "\n")
}

// Source yields the pages of one PDF file.
type Source interface {
	Load(ctx context.Context, path string) (Document, error)
}

// FromTexts builds a document whose pages carry plain text only, one block per line.
func FromTexts(path string, pages ...string) Document {
	doc := Document{Path: path}
	for i, text := range pages {
		p := Page{Index: i, Text: text}
		for _, ln := range strings.Split(text, "\n") {
			if strings.TrimSpace(ln) == "" {
				continue
			}
			p.Blocks = append(p.Blocks, Block{Lines: []Line{{Spans: []Span{{Text: ln, Size: 10}}}}})
		}
		doc.Pages = append(doc.Pages, p)
	}
	return doc
}
