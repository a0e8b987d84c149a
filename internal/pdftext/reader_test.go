package pdftext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyphs(s string, x, y, size float64, font string) []pdf.Text {
	out := make([]pdf.Text, 0, len(s))
	for _, r := range s {
		out = append(out, pdf.Text{Font: font, FontSize: size, X: x, Y: y, W: size * 0.5, S: string(r)})
		x += size * 0.5
	}
	return out
}

func TestBuildLinesMergesGlyphsAndInsertsWordGaps(t *testing.T) {
	content := append(glyphs("Deep", 10, 700, 10, "Times-Roman"), glyphs("Nets", 40, 700, 10, "Times-Roman")...)
	rows := pdf.Rows{
		{Position: 650, Content: glyphs("body", 10, 650, 10, "Times-Roman")},
		{Position: 700, Content: content},
	}
	lines := buildLines(rows)
	require.Len(t, lines, 2)
	assert.Equal(t, "Deep Nets", lines[0].Text())
	assert.Equal(t, "body", lines[1].Text())
	assert.False(t, lines[0].Bold())
}

func TestBuildLinesSplitsSpansOnFontChange(t *testing.T) {
	content := append(glyphs("Intro", 10, 700, 12, "Arial-BoldMT"), glyphs("x", 40, 700, 10, "ArialMT")...)
	lines := buildLines(pdf.Rows{{Position: 700, Content: content}})
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Spans, 2)
	assert.True(t, lines[0].Spans[0].Bold)
	assert.Equal(t, 12.0, lines[0].MaxSize())
}

func TestGroupBlocksOnGapAndStyle(t *testing.T) {
	line := func(text string, y, size float64, bold bool) Line {
		return Line{Spans: []Span{{Text: text, Size: size, Bold: bold, Y: y}}}
	}
	lines := []Line{
		line("INTRODUCTION", 700, 14, true),
		line("first body line", 685, 10, false),
		line("second body line", 673, 10, false),
		line("after a gap", 600, 10, false),
	}
	blocks := groupBlocks(lines)
	require.Len(t, blocks, 3)
	assert.Equal(t, "INTRODUCTION", blocks[0].Text())
	assert.Equal(t, "first body line\nsecond body line", blocks[1].Text())
	assert.Equal(t, "after a gap", blocks[2].Text())
}

func TestLoadCorruptFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 not really a pdf"), 0o644))
	_, err := NewReader().Load(context.Background(), path)
	require.Error(t, err)
}

func TestFromTextsFullText(t *testing.T) {
	doc := FromTexts("x.pdf", "page one", "page two")
	assert.Equal(t, "page one\npage two", doc.FullText())
	assert.Len(t, doc.Pages[0].Blocks, 1)
}
