package sections

import (
	"regexp"
	"strings"

	"litreview/internal/pdftext"
)

// headingKeywords is matched in order; plural and spacing variants are folded in.
var headingKeywords = []string{
	`abstract`,
	`summary`,
	`keywords?`,
	`key terms`,
	`index terms`,
	`introduction`,
	`background`,
	`overview`,
	`related works?`,
	`previous works?`,
	`prior work`,
	`literature review`,
	`state of the art`,
	`methods?`,
	`methodology`,
	`approach`,
	`materials and methods`,
	`experiments?`,
	`experimental setup`,
	`implementation details`,
	`experimental details`,
	`results?`,
	`findings`,
	`evaluation results`,
	`discussion`,
	`analysis`,
	`interpretation`,
	`conclusions?`,
	`concluding remarks?`,
	`summary and conclusions?`,
	`future work`,
	`outlook`,
	`limitations?`,
	`limitations and future work`,
	`acknowledge?ments?`,
	`thanks`,
	`references`,
	`bibliography`,
	`works cited`,
	`appendix`,
	`supplementary materials?`,
}

var (
	headingPattern = buildHeadingPattern(headingKeywords)
	numericOnly    = regexp.MustCompile(`^[\d\.\s]*$`)
	innerSpace     = regexp.MustCompile(`\s+`)
)

func buildHeadingPattern(keywords []string) *regexp.Regexp {
	alts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		alts = append(alts, strings.ReplaceAll(k, " ", `[ \t]+`))
	}
	return regexp.MustCompile(`(?im)^[ \t]*(?:\d+(?:\.\d+)*\.?[ \t]*)?(` + strings.Join(alts, "|") + `)[ \t]*:?[ \t\r]*$`)
}

// PatternDetector splits the page-joined text on standalone heading lines
// drawn from a fixed keyword vocabulary.
type PatternDetector struct{}

func NewPatternDetector() PatternDetector {
	return PatternDetector{}
}

func (PatternDetector) Detect(doc pdftext.Document) (Result, error) {
	return detectPattern(doc.FullText()), nil
}

func detectPattern(text string) Result {
	table := NewTable()
	locs := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return Result{Sections: table}
	}
	var metadata string
	metadataSet := false
	for i, loc := range locs {
		key := strings.ToLower(innerSpace.ReplaceAllString(text[loc[2]:loc[3]], " "))
		if key == "abstract" && !metadataSet {
			metadata = trimNumericTail(text[:loc[0]])
			metadataSet = true
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		table.Ensure(key)
		body := trimNumericTail(text[loc[1]:end])
		if numericOnly.MatchString(body) {
			continue
		}
		table.Append(key, body)
	}
	return Result{Sections: table, Metadata: metadata}
}

// trimNumericTail drops trailing lines that hold only an outline number or page number.
func trimNumericTail(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	for len(lines) > 0 && numericOnly.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
