package pdftext

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"litreview/internal/util"

	"github.com/ledongthuc/pdf"
)

const (
	wordGapRatio  = 0.2
	blockGapRatio = 1.5
	sizeTolerance = 0.5
)

// Reader extracts positioned text with github.com/ledongthuc/pdf.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) Load(ctx context.Context, path string) (doc Document, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			doc = Document{}
			err = fmt.Errorf("parse pdf %s: %v", path, rec)
		}
	}()

	f, pr, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc = Document{Path: path}
	hasText := false
	for i := 1; i <= pr.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		p := pr.Page(i)
		page := Page{Index: i - 1}
		if p.V.IsNull() {
			doc.Pages = append(doc.Pages, page)
			continue
		}
		rows, rowErr := p.GetTextByRow()
		if rowErr == nil {
			lines := buildLines(rows)
			page.Blocks = groupBlocks(lines)
			page.Text = linesText(lines)
		}
		if strings.TrimSpace(page.Text) == "" {
			plain, perr := p.GetPlainText(nil)
			if perr != nil && rowErr != nil {
				return Document{}, fmt.Errorf("extract page %d: %w", i, perr)
			}
			page.Text = util.SanitizeText(plain)
		}
		if page.Text != "" {
			hasText = true
		}
		doc.Pages = append(doc.Pages, page)
	}
	if !hasText {
		return Document{}, util.ErrNoExtractableText
	}
	return doc, nil
}

// buildLines merges each row's glyph runs into spans of uniform font and size.
func buildLines(rows pdf.Rows) []Line {
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, r := range rows {
		if r != nil && len(r.Content) > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	lines := make([]Line, 0, len(sorted))
	for _, row := range sorted {
		texts := append([]pdf.Text(nil), row.Content...)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		var line Line
		var cur *Span
		var lastEnd float64
		for _, t := range texts {
			if t.S == "" {
				continue
			}
			bold := isBoldFont(t.Font)
			gap := cur != nil && t.X-lastEnd > wordGapRatio*math.Max(t.FontSize, 1)
			if cur == nil || cur.Bold != bold || math.Abs(cur.Size-t.FontSize) > 0.01 {
				if cur != nil {
					line.Spans = append(line.Spans, *cur)
				}
				text := t.S
				if gap && !strings.HasPrefix(text, " ") {
					text = " " + text
				}
				cur = &Span{Text: text, Size: t.FontSize, Bold: bold, X: t.X, Y: t.Y}
			} else {
				if gap && !strings.HasSuffix(cur.Text, " ") && !strings.HasPrefix(t.S, " ") {
					cur.Text += " "
				}
				cur.Text += t.S
			}
			lastEnd = t.X + t.W
		}
		if cur != nil {
			line.Spans = append(line.Spans, *cur)
		}
		for i := range line.Spans {
			line.Spans[i].Text = strings.ReplaceAll(line.Spans[i].Text, "\x00", "")
		}
		if strings.TrimSpace(line.Text()) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// groupBlocks starts a new block on a wide vertical gap or a change of style.
func groupBlocks(lines []Line) []Block {
	var blocks []Block
	var cur Block
	for i, l := range lines {
		if i > 0 {
			prev := lines[i-1]
			height := math.Max(prev.MaxSize(), l.MaxSize())
			gap := lineY(prev) - lineY(l)
			styleChange := math.Abs(prev.MaxSize()-l.MaxSize()) > sizeTolerance || prev.Bold() != l.Bold()
			if gap > blockGapRatio*height || styleChange {
				blocks = append(blocks, cur)
				cur = Block{}
			}
		}
		cur.Lines = append(cur.Lines, l)
	}
	if len(cur.Lines) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func lineY(l Line) float64 {
	if len(l.Spans) == 0 {
		return 0
	}
	return l.Spans[0].Y
}

func linesText(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text())
	}
	return util.SanitizeText(strings.Join(parts, "\n"))
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy")
}
