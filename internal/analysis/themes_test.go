package analysis

import (
	"context"
	"errors"
	"sort"
	"testing"

	"litreview/internal/capability"
	"litreview/internal/models"
	"litreview/internal/providers"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ calls [][]string }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls = append(f.calls, texts)
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(i)}
	}
	return out, nil
}

// fixedClusterer puts even indices in one group and odd indices in another.
type fixedClusterer struct{ k int }

func (f *fixedClusterer) Cluster(vectors [][]float64, k int) ([][]int, error) {
	f.k = k
	var odd, even []int
	for i := range vectors {
		if i%2 == 0 {
			even = append(even, i)
		} else {
			odd = append(odd, i)
		}
	}
	return [][]int{odd, even}, nil
}

func labels(values ...string) capability.Func {
	i := 0
	return func(context.Context, providers.GenerateRequest) (string, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

func records(names ...string) []models.PaperRecord {
	out := make([]models.PaperRecord, 0, len(names))
	for _, n := range names {
		out = append(out, models.PaperRecord{Filename: n})
	}
	return out
}

func TestThemerAssignIsOrderIndependent(t *testing.T) {
	emb := &fakeEmbedder{}
	cl := &fixedClusterer{}
	th := &Themer{Embedder: emb, Clusterer: cl, Label: labels("Alpha", "  "), MaxThemes: 5, Logger: zerolog.Nop()}

	in := records("c.pdf", "a.pdf", "b.pdf")
	in[1].Metadata.Title = "Paper A"
	out, themes, err := th.Assign(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Paper A", "b.pdf", "c.pdf"}, emb.calls[0])
	assert.Equal(t, 3, cl.k)
	assert.Equal(t, map[string][]string{
		"Alpha":   {"Paper A", "c.pdf"},
		"Theme 2": {"b.pdf"},
	}, themes)
	assert.Equal(t, []string{"Alpha"}, out[0].Themes)
	assert.Equal(t, []string{"Theme 2"}, out[1].Themes)
	assert.Equal(t, "c.pdf", out[2].Filename)
	assert.Equal(t, "c.pdf", in[0].Filename)
}

func TestThemerDeduplicatesLabels(t *testing.T) {
	th := &Themer{Embedder: &fakeEmbedder{}, Clusterer: &fixedClusterer{}, Label: labels("Same"), MaxThemes: 2, Logger: zerolog.Nop()}
	_, themes, err := th.Assign(context.Background(), records("a.pdf", "b.pdf"))
	require.NoError(t, err)
	keys := make([]string, 0, len(themes))
	for k := range themes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"Same", "Same (2)"}, keys)
}

func TestThemerPropagatesLabelFailure(t *testing.T) {
	th := &Themer{
		Embedder:  &fakeEmbedder{},
		Clusterer: &fixedClusterer{},
		Label: func(context.Context, providers.GenerateRequest) (string, error) {
			return "", errors.New("boom")
		},
		MaxThemes: 5,
		Logger:    zerolog.Nop(),
	}
	_, _, err := th.Assign(context.Background(), records("a.pdf"))
	require.Error(t, err)
}

func TestThemerEmptyCorpus(t *testing.T) {
	th := &Themer{Embedder: &fakeEmbedder{}, Clusterer: KMeansClusterer{}, Label: labels("x"), MaxThemes: 5}
	out, themes, err := th.Assign(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, themes)
}

func TestKMeansClustererCoversEveryIndexOnce(t *testing.T) {
	vectors := [][]float64{{0, 0}, {0.1, 0}, {10, 10}, {10.1, 10}, {0, 0.1}}
	groups, err := KMeansClusterer{}.Cluster(vectors, 2)
	require.NoError(t, err)
	var all []int
	for _, g := range groups {
		all = append(all, g...)
	}
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)

	single, err := KMeansClusterer{}.Cluster(vectors, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, single)
}

func TestProviderEmbedderConvertsVectors(t *testing.T) {
	e := ProviderEmbedder{Provider: providers.NewMockProvider(4), Dimension: 4}
	out, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 4)
}
