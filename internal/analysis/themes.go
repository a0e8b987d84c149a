package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"litreview/internal/capability"
	"litreview/internal/models"
	"litreview/internal/providers"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/rs/zerolog"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Clusterer partitions vectors into k groups of indices.
type Clusterer interface {
	Cluster(vectors [][]float64, k int) ([][]int, error)
}

// ProviderEmbedder adapts an embedding provider.
type ProviderEmbedder struct {
	Provider  providers.EmbeddingProvider
	Dimension int
}

func (e ProviderEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, _, err := e.Provider.Embed(ctx, providers.EmbedRequest{
		Operation: "theme_embed",
		Inputs:    texts,
		Dimension: e.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embed titles: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed titles: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = make([]float64, len(v))
		for j, x := range v {
			out[i][j] = float64(x)
		}
	}
	return out, nil
}

// indexedPoint is a clusters.Observation that remembers its input position.
type indexedPoint struct {
	coords clusters.Coordinates
	index  int
}

func (p indexedPoint) Coordinates() clusters.Coordinates { return p.coords }

func (p indexedPoint) Distance(c clusters.Coordinates) float64 { return p.coords.Distance(c) }

type KMeansClusterer struct{}

func (KMeansClusterer) Cluster(vectors [][]float64, k int) ([][]int, error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	if k <= 1 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, nil
	}
	obs := make(clusters.Observations, 0, n)
	for i, v := range vectors {
		obs = append(obs, indexedPoint{coords: clusters.Coordinates(v), index: i})
	}
	parts, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}
	// an observation can be appended to more than one cluster while empty
	// clusters are reseeded; keep its first assignment.
	seen := make(map[int]bool, n)
	out := make([][]int, 0, len(parts))
	for _, c := range parts {
		var group []int
		for _, o := range c.Observations {
			p, ok := o.(indexedPoint)
			if !ok || seen[p.index] {
				continue
			}
			seen[p.index] = true
			group = append(group, p.index)
		}
		if len(group) > 0 {
			sort.Ints(group)
			out = append(out, group)
		}
	}
	return out, nil
}

// Themer groups papers by title similarity and names each group.
type Themer struct {
	Embedder  Embedder
	Clusterer Clusterer
	// Label must be a blocking call; a theme without a name is not usable.
	Label     capability.Func
	MaxThemes int
	Logger    zerolog.Logger
}

// Assign sorts records by filename, clusters their titles into at most
// MaxThemes groups and returns the records tagged with their theme labels.
func (t *Themer) Assign(ctx context.Context, records []models.PaperRecord) ([]models.PaperRecord, map[string][]string, error) {
	out := make([]models.PaperRecord, len(records))
	copy(out, records)
	SortRecords(out)
	themes := map[string][]string{}
	if len(out) == 0 {
		return out, themes, nil
	}

	titles := make([]string, len(out))
	for i, r := range out {
		titles[i] = r.Title()
	}
	vectors, err := t.Embedder.Embed(ctx, titles)
	if err != nil {
		return nil, nil, err
	}
	k := t.MaxThemes
	if k <= 0 || k > len(out) {
		k = len(out)
	}
	groups, err := t.Clusterer.Cluster(vectors, k)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(groups, func(i, j int) bool { return firstIndex(groups[i]) < firstIndex(groups[j]) })

	for n, group := range groups {
		members := make([]string, 0, len(group))
		for _, idx := range group {
			members = append(members, titles[idx])
		}
		label, err := t.Label(ctx, themeLabelRequest(members))
		if err != nil {
			return nil, nil, fmt.Errorf("label theme %d: %w", n+1, err)
		}
		label = uniqueLabel(cleanLabel(label, n+1), themes)
		themes[label] = members
		for _, idx := range group {
			out[idx].Themes = append(out[idx].Themes, label)
		}
	}
	for i := range out {
		if out[i].Themes == nil {
			out[i].Themes = []string{}
		}
	}
	t.Logger.Info().Int("themes", len(themes)).Msg("themes assigned")
	return out, themes, nil
}

func firstIndex(group []int) int {
	if len(group) == 0 {
		return int(^uint(0) >> 1)
	}
	return group[0]
}

func cleanLabel(label string, n int) string {
	label = strings.Trim(strings.TrimSpace(label), `"'*#`)
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Sprintf("Theme %d", n)
	}
	return label
}

func uniqueLabel(label string, taken map[string][]string) string {
	if _, ok := taken[label]; !ok {
		return label
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", label, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
