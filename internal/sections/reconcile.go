package sections

import (
	"strings"

	"litreview/internal/models"
	"litreview/internal/util"

	"github.com/agnivade/levenshtein"
)

type Category string

const (
	ResearchQuestion Category = "research_question"
	Methodology      Category = "methodology"
	Findings         Category = "findings"
	Gaps             Category = "gaps"
)

var Categories = []Category{ResearchQuestion, Methodology, Findings, Gaps}

// NotFound marks a category neither detector could resolve.
const NotFound = "not found"

const metadataFallbackChars = 500

type Keywords map[Category][]string

func DefaultKeywords() Keywords {
	return Keywords{
		ResearchQuestion: {"abstract", "introduction", "objective", "research question", "motivation", "aim"},
		Methodology:      {"method", "methodology", "approach", "materials and methods", "experimental setup", "experiment", "implementation"},
		Findings:         {"result", "finding", "evaluation", "discussion", "conclusion"},
		Gaps:             {"limitation", "future work", "discussion", "conclusion", "outlook", "open problem"},
	}
}

// Limits caps each category's text in runes.
type Limits map[Category]int

func LimitsFromSettings(s models.Settings) Limits {
	s = s.Normalize()
	return Limits{
		ResearchQuestion: s.ResearchQuestionChars,
		Methodology:      s.MethodologyChars,
		Findings:         s.FindingsChars,
		Gaps:             s.GapsChars,
	}
}

// Reconciled holds one value per category, each either non-empty text or NotFound.
type Reconciled struct {
	Sections map[Category]string
	Metadata string
}

// Unresolved lists categories still carrying NotFound.
func (r Reconciled) Unresolved() []Category {
	var out []Category
	for _, c := range Categories {
		if r.Sections[c] == NotFound {
			out = append(out, c)
		}
	}
	return out
}

// Reconciler merges a pattern table (v1) and a layout table (v2).
type Reconciler struct {
	Keywords Keywords
}

func NewReconciler() *Reconciler {
	return &Reconciler{Keywords: DefaultKeywords()}
}

// Reconcile resolves every category and picks the metadata text.
func (r *Reconciler) Reconcile(v1, v2 Result, firstPage string, limits Limits) Reconciled {
	out := Reconciled{Sections: make(map[Category]string, len(Categories))}
	for _, c := range Categories {
		out.Sections[c] = r.Category(v1.Sections, v2.Sections, r.Keywords[c], limits[c])
	}
	out.Metadata = SelectMetadata(v1.Metadata, v2.Metadata, firstPage)
	return out
}

// Category combines, per keyword, the closest matching section of either table.
// The layout table wins when both matches are equally close.
func (r *Reconciler) Category(v1, v2 *Table, keywords []string, limit int) string {
	var parts []string
	seen := map[string]bool{}
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		k1, d1, ok1 := closestKey(v1, kw)
		k2, d2, ok2 := closestKey(v2, kw)
		var content string
		switch {
		case ok1 && ok2:
			if d2 <= d1 {
				content = v2.Text(k2)
			} else {
				content = v1.Text(k1)
			}
		case ok2:
			content = v2.Text(k2)
		case ok1:
			content = v1.Text(k1)
		}
		content = strings.TrimSpace(content)
		if content == "" || seen[content] {
			continue
		}
		seen[content] = true
		parts = append(parts, "["+kw+"]\n"+content)
	}
	combined := strings.TrimSpace(util.TruncateRunes(strings.Join(parts, "\n\n"), limit))
	if combined == "" {
		return NotFound
	}
	return combined
}

// closestKey returns the title containing kw with the smallest edit distance to it.
func closestKey(t *Table, kw string) (string, int, bool) {
	if t == nil {
		return "", 0, false
	}
	best, bestDist, found := "", 0, false
	for _, title := range t.Titles() {
		low := strings.ToLower(title)
		if !strings.Contains(low, kw) {
			continue
		}
		d := levenshtein.ComputeDistance(low, kw)
		if !found || d < bestDist {
			best, bestDist, found = title, d, true
		}
	}
	return best, bestDist, found
}

// SelectMetadata prefers pattern metadata, then layout metadata, then the head of the first page.
func SelectMetadata(pattern, layout, firstPage string) string {
	if m := strings.TrimSpace(pattern); m != "" {
		return m
	}
	if m := strings.TrimSpace(layout); m != "" {
		return m
	}
	return strings.TrimSpace(util.TruncateRunes(firstPage, metadataFallbackChars))
}

// Fallback extracts raw page text for an unresolved category.
func Fallback(c Category, pages []string, limit int) string {
	n := len(pages)
	var idx []int
	if c == Findings {
		idx = []int{n - 2, n - 1, n - 7, n - 6}
	} else {
		idx = []int{0, 1, 2}
	}
	seen := map[int]bool{}
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		if p := strings.TrimSpace(pages[i]); p != "" {
			parts = append(parts, p)
		}
	}
	text := strings.TrimSpace(util.TruncateRunes(strings.Join(parts, "\n"), limit))
	if text == "" {
		return NotFound
	}
	return text
}

// WithFallback replaces every NotFound category with raw page text and
// reports which categories needed it.
func (r Reconciled) WithFallback(pages []string, limits Limits) (Reconciled, []Category) {
	out := Reconciled{Sections: make(map[Category]string, len(r.Sections)), Metadata: r.Metadata}
	for k, v := range r.Sections {
		out.Sections[k] = v
	}
	used := r.Unresolved()
	for _, c := range used {
		out.Sections[c] = Fallback(c, pages, limits[c])
	}
	return out, used
}
