package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"litreview/internal/observability"
	"litreview/internal/pdftext"
	"litreview/internal/sections"
	"litreview/internal/util"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const referencesMaxChars = 8000

var referencesHeading = regexp.MustCompile(`(?i)\b(references|bibliography)\b`)

// PaperSections is the structured form of one paper, ready for analysis.
type PaperSections struct {
	Filename   string            `json:"filename"`
	PaperID    string            `json:"paper_id"`
	PageCount  int               `json:"page_count"`
	Metadata   string            `json:"metadata"`
	Sections   map[string]string `json:"sections"`
	Fallbacks  []string          `json:"fallbacks,omitempty"`
	References string            `json:"references,omitempty"`
}

func (p PaperSections) Section(c sections.Category) string {
	return p.Sections[string(c)]
}

// Snapshot maps each paper's path relative to the corpus folder to its sections.
type Snapshot map[string]PaperSections

// Filenames returns the snapshot keys in sorted order.
func (s Snapshot) Filenames() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Ingestor struct {
	Source     pdftext.Source
	Pattern    sections.Detector
	Layout     sections.Detector
	Reconciler *sections.Reconciler
	Workers    int
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
}

func NewIngestor(src pdftext.Source, workers int, logger zerolog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		Source:     src,
		Pattern:    sections.NewPatternDetector(),
		Layout:     sections.NewLayoutDetector(),
		Reconciler: sections.NewReconciler(),
		Workers:    workers,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// ListPDFs walks folder recursively for files with a .pdf extension in any case.
func ListPDFs(folder string) ([]string, error) {
	if !util.IsDir(folder) {
		return nil, fmt.Errorf("%w: %s", util.ErrFolderNotFound, folder)
	}
	var out []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", folder, err)
	}
	sort.Strings(out)
	return out, nil
}

// Ingest structures every PDF under folder. Files that fail are logged and
// left out; the call fails only when none succeed. The snapshot is written to
// snapshotPath, when set, before it is returned.
func (in *Ingestor) Ingest(ctx context.Context, folder string, limits sections.Limits, snapshotPath string) (Snapshot, error) {
	paths, err := ListPDFs(folder)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", util.ErrNoPDFs, folder)
	}

	snap := Snapshot{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if in.Workers > 0 {
		g.SetLimit(in.Workers)
	}
	for _, path := range paths {
		path := path
		rel, relErr := filepath.Rel(folder, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rec, err := in.ProcessFile(gctx, path, rel, limits)
			if err != nil {
				in.Metrics.ObserveIngest(false)
				in.Logger.Warn().Err(err).Str("file", rel).Msg("skipping unreadable pdf")
				return nil
			}
			in.Metrics.ObserveIngest(true)
			mu.Lock()
			snap[rel] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return nil, fmt.Errorf("%w: %d files tried", util.ErrNoUsablePapers, len(paths))
	}
	if snapshotPath != "" {
		if err := util.WriteJSONAtomic(snapshotPath, snap); err != nil {
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
	}
	in.Logger.Info().Int("papers", len(snap)).Int("files", len(paths)).Msg("corpus ingested")
	return snap, nil
}

// ProcessFile runs both detectors over one PDF and reconciles them. Panics
// from the PDF parser are returned as errors.
func (in *Ingestor) ProcessFile(ctx context.Context, path, filename string, limits sections.Limits) (rec PaperSections, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = PaperSections{}
			err = fmt.Errorf("process %s: panic: %v", filename, r)
		}
	}()

	doc, err := in.Source.Load(ctx, path)
	if err != nil {
		return PaperSections{}, err
	}
	if len(doc.Pages) == 0 {
		return PaperSections{}, util.ErrNoExtractableText
	}
	v2, err := in.Layout.Detect(doc)
	if err != nil {
		return PaperSections{}, fmt.Errorf("layout sections: %w", err)
	}
	v1, err := in.Pattern.Detect(doc)
	if err != nil {
		return PaperSections{}, fmt.Errorf("pattern sections: %w", err)
	}
	pages := doc.PageTexts()
	reconciled := in.Reconciler.Reconcile(v1, v2, pages[0], limits)
	resolved, used := reconciled.WithFallback(pages, limits)

	paperID, err := util.SHA256HexFile(path)
	if err != nil {
		return PaperSections{}, err
	}
	rec = PaperSections{
		Filename:   filename,
		PaperID:    paperID,
		PageCount:  len(pages),
		Metadata:   resolved.Metadata,
		Sections:   make(map[string]string, len(resolved.Sections)),
		References: referencesText(pages),
	}
	for c, text := range resolved.Sections {
		rec.Sections[string(c)] = text
	}
	for _, c := range used {
		rec.Fallbacks = append(rec.Fallbacks, string(c))
		in.Metrics.ObserveFallback(string(c))
	}
	return rec, nil
}

// referencesText returns the document tail starting at the last page that
// mentions references or a bibliography, or the last page when none does.
func referencesText(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	for i := len(pages) - 1; i >= 0; i-- {
		loc := referencesHeading.FindStringIndex(pages[i])
		if loc == nil {
			continue
		}
		tail := append([]string{pages[i][loc[0]:]}, pages[i+1:]...)
		return util.TruncateRunes(strings.TrimSpace(strings.Join(tail, "\n")), referencesMaxChars)
	}
	return util.TruncateRunes(strings.TrimSpace(pages[len(pages)-1]), referencesMaxChars)
}

func LoadSnapshot(path string) (Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
