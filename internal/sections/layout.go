package sections

import (
	"regexp"
	"strings"
	"unicode"

	"litreview/internal/pdftext"
)

const initialSection = "initial"

var outlinePrefix = regexp.MustCompile(`^(?:\d+\.?)*\s*`)

// LayoutDetector treats the first line of a block as a heading when it is
// visually prominent: larger than the document average, mostly bold, or all caps.
type LayoutDetector struct {
	SizeRatio     float64
	MaxWords      int
	MinChars      int
	ExcludedChars string
}

func NewLayoutDetector() LayoutDetector {
	return LayoutDetector{
		SizeRatio:     1.15,
		MaxWords:      12,
		MinChars:      4,
		ExcludedChars: "=<>∈+-",
	}
}

func (d LayoutDetector) Detect(doc pdftext.Document) (Result, error) {
	table := NewTable()
	avg := averageSpanSize(doc)
	current := ""
	for _, page := range doc.Pages {
		for _, block := range page.Blocks {
			if len(block.Lines) == 0 {
				continue
			}
			first := block.Lines[0]
			if title, ok := d.headingTitle(first, avg); ok {
				current = title
				table.Ensure(current)
				rest := pdftext.Block{Lines: block.Lines[1:]}
				table.Append(current, rest.Text())
				continue
			}
			if current == "" {
				current = initialSection
			}
			table.Append(current, block.Text())
		}
	}
	return Result{Sections: table, Metadata: extractMetadata(table)}, nil
}

func (d LayoutDetector) headingTitle(line pdftext.Line, avg float64) (string, bool) {
	candidate := strings.TrimSpace(line.Text())
	if len([]rune(candidate)) < d.MinChars {
		return "", false
	}
	if len(strings.Fields(candidate)) > d.MaxWords {
		return "", false
	}
	if strings.ContainsAny(candidate, d.ExcludedChars) {
		return "", false
	}
	large := avg > 0 && line.MaxSize() > d.SizeRatio*avg
	if !large && !line.Bold() && !isUpper(candidate) {
		return "", false
	}
	title := strings.TrimSpace(outlinePrefix.ReplaceAllString(candidate, ""))
	if title == "" {
		return "", false
	}
	return title, true
}

// extractMetadata moves every section preceding "abstract" into a metadata
// string and removes them from the table.
func extractMetadata(table *Table) string {
	titles := table.Titles()
	abstractAt := -1
	for i, t := range titles {
		if isAbstractTitle(t) {
			abstractAt = i
			break
		}
	}
	if abstractAt < 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range titles[:abstractAt] {
		b.WriteString("\n")
		b.WriteString(t)
		b.WriteString(" : ")
		b.WriteString(table.Text(t))
		table.Remove(t)
	}
	return strings.TrimSpace(b.String())
}

func isAbstractTitle(t string) bool {
	return strings.EqualFold(strings.TrimRight(strings.TrimSpace(t), ":.—-"), "abstract")
}

func averageSpanSize(doc pdftext.Document) float64 {
	var sum float64
	n := 0
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				for _, s := range l.Spans {
					if s.Size <= 0 {
						continue
					}
					sum += s.Size
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// isUpper reports whether s has at least one cased letter and no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}
