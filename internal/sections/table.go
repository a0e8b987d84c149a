package sections

import (
	"strings"

	"litreview/internal/pdftext"
)

// Table maps section titles to their text blocks in document order.
type Table struct {
	order  []string
	blocks map[string][]string
}

func NewTable() *Table {
	return &Table{blocks: map[string][]string{}}
}

// Ensure registers title without adding text.
func (t *Table) Ensure(title string) {
	if _, ok := t.blocks[title]; ok {
		return
	}
	t.order = append(t.order, title)
	t.blocks[title] = nil
}

func (t *Table) Append(title, text string) {
	t.Ensure(title)
	if strings.TrimSpace(text) == "" {
		return
	}
	t.blocks[title] = append(t.blocks[title], text)
}

func (t *Table) Titles() []string {
	return append([]string(nil), t.order...)
}

func (t *Table) Get(title string) ([]string, bool) {
	b, ok := t.blocks[title]
	return b, ok
}

// Text joins the blocks of title with newlines.
func (t *Table) Text(title string) string {
	return strings.TrimSpace(strings.Join(t.blocks[title], "\n"))
}

func (t *Table) Remove(title string) {
	if _, ok := t.blocks[title]; !ok {
		return
	}
	delete(t.blocks, title)
	for i, k := range t.order {
		if k == title {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Map flattens the table for persistence.
func (t *Table) Map() map[string]string {
	out := make(map[string]string, len(t.order))
	for _, k := range t.order {
		out[k] = t.Text(k)
	}
	return out
}

// Result is the output of one detector over one document.
type Result struct {
	Sections *Table
	Metadata string
}

type Detector interface {
	Detect(doc pdftext.Document) (Result, error)
}
