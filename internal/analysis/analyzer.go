package analysis

import (
	"context"
	"sort"
	"strings"
	"sync"

	"litreview/internal/capability"
	"litreview/internal/ingest"
	"litreview/internal/models"
	"litreview/internal/observability"
	"litreview/internal/sections"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Analyzer turns reconciled paper sections into PaperRecords. Every per-paper
// call degrades to an empty field instead of failing the paper.
type Analyzer struct {
	Call             capability.Func
	Policy           capability.Policy
	Workers          int
	CitationsEnabled bool
	Logger           zerolog.Logger
}

func NewAnalyzer(call capability.Func, policy capability.Policy, workers int, citations bool, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		Call:             call,
		Policy:           policy,
		Workers:          workers,
		CitationsEnabled: citations,
		Logger:           logger,
	}
}

type fieldCall struct {
	op   string
	text string
	out  *string
}

// AnalyzePaper issues the metadata, research question, methodology, findings
// and gaps calls concurrently and joins them into one record. A citations call
// is added when enabled.
func (a *Analyzer) AnalyzePaper(ctx context.Context, p ingest.PaperSections) models.PaperRecord {
	ctx = capability.WithPaper(ctx, p.PaperID)
	call := capability.WithRetryOrDegrade(a.Policy, a.Call)
	logger := observability.WithPaperContext(a.Logger, p.Filename)

	var metadata, question, methodology, findings, gaps, citations string
	inputs := []fieldCall{
		{OpMetadata, p.Metadata, &metadata},
		{OpResearchQuestion, p.Section(sections.ResearchQuestion), &question},
		{OpMethodology, p.Section(sections.Methodology), &methodology},
		{OpFindings, p.Section(sections.Findings), &findings},
		{OpGaps, p.Section(sections.Gaps), &gaps},
	}
	if a.CitationsEnabled && strings.TrimSpace(p.References) != "" {
		inputs = append(inputs, fieldCall{OpCitations, p.References, &citations})
	}

	var wg sync.WaitGroup
	for _, in := range inputs {
		in := in
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, ok := call(ctx, promptFor(in.op, in.text))
			if !ok {
				logger.Warn().Str("operation", in.op).Msg("field left empty")
				return
			}
			*in.out = out
		}()
	}
	wg.Wait()

	md := ParseMetadata(metadata)
	if md.IsZero() {
		logger.Warn().Msg("no metadata extracted; the filename stands in for the title")
	}
	return models.PaperRecord{
		Filename:         p.Filename,
		PaperID:          p.PaperID,
		Metadata:         md,
		ResearchQuestion: strings.TrimSpace(question),
		Methodology:      ParseBullets(methodology),
		Findings:         ParseBullets(findings),
		Gaps:             ParseBullets(gaps),
		Themes:           []string{},
		Citations:        ParseCitations(citations),
	}
}

// EmptyRecord is the record of a paper whose analysis produced nothing.
func EmptyRecord(p ingest.PaperSections) models.PaperRecord {
	return models.PaperRecord{
		Filename:    p.Filename,
		PaperID:     p.PaperID,
		Methodology: []string{},
		Findings:    []string{},
		Gaps:        []string{},
		Themes:      []string{},
	}
}

// AnalyzeCorpus analyzes every paper of the snapshot on a pool of at most
// Workers tasks. Records are returned sorted by filename.
func (a *Analyzer) AnalyzeCorpus(ctx context.Context, snap ingest.Snapshot) ([]models.PaperRecord, error) {
	records := make([]models.PaperRecord, 0, len(snap))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if a.Workers > 0 {
		g.SetLimit(a.Workers)
	}
	for _, name := range snap.Filenames() {
		paper := snap[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := a.AnalyzePaper(gctx, paper)
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	SortRecords(records)
	a.Logger.Info().Int("papers", len(records)).Msg("corpus analyzed")
	return records, nil
}

func SortRecords(records []models.PaperRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Filename < records[j].Filename })
}
