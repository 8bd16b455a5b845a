package tariff

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tariff/ai/mock"
	"github.com/poiesic/tariff/core"
)

const testTaxonomyCSV = `level,code,label
0,,All goods
1,22,Beverages and vinegar
2,2202,Non-alcoholic beverages
3,2202 10,Waters with added sugar
3,2202 99,Other non-alcoholic beverages
2,2209,Vinegar
3,2209 00,Vinegar and substitutes
`

// uniformEmbedder makes every text embed to the same direction, pinning the
// base similarity of every leaf at 1.0.
func uniformEmbedder() *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	vec := func() []float32 {
		v := make([]float32, 8)
		v[0] = 1
		return v
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vec(), nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = vec()
		}
		return out, nil
	}
	return embedder
}

func newTestSystem(t *testing.T, generator *mock.MockTextGenerator) *System {
	t.Helper()

	provider := mock.NewMockProviderWithServices(uniformEmbedder(), generator)
	system, err := NewSystem(context.Background(), "", strings.NewReader(testTaxonomyCSV),
		WithProvider(provider),
		WithInMemoryStorage(),
		WithEmbeddingCacheDir(t.TempDir()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })
	return system
}

func TestSystemClassifyEndToEnd(t *testing.T) {
	generator := mock.NewMockTextGeneratorWithResponses(
		"sparkling apple juice",
		"QUESTION: Does the drink contain added sugar?",
		"sparkling apple juice no added sugar",
		"CONCLUSION: Code 2202 99 fits best: a non-alcoholic beverage without added sugar.",
	)
	system := newTestSystem(t, generator)

	result, err := system.Run(context.Background(), "sparkling apple juice",
		func(question string, options []string) (string, error) {
			assert.Equal(t, "Does the drink contain added sugar?", question)
			return "no", nil
		})
	require.NoError(t, err)

	assert.Equal(t, core.StatusClassified, result.Status)
	assert.NotEmpty(t, result.Code)
	assert.Contains(t, result.Conclusion, "2202 99")
	require.NotEmpty(t, result.Trail)
	assert.Equal(t, "no", result.Trail[0].Answer)
}

func TestSystemSavePrecedent(t *testing.T) {
	generator := mock.NewMockTextGeneratorWithResponses(
		"apple vinegar",
		"QUESTION: Is the vinegar made from fermented apples?",
		"apple vinegar fermented",
		"CONCLUSION: Code 2209 00 fits best: vinegar obtained by fermentation.",
	)
	system := newTestSystem(t, generator)

	ctx := context.Background()
	session, turn, err := system.Classify(ctx, "apple cider vinegar")
	require.NoError(t, err)

	for !turn.Done {
		turn, err = session.Answer(ctx, "yes")
		require.NoError(t, err)
	}

	precedent, err := system.SavePrecedent(ctx, session)
	require.NoError(t, err)
	assert.NotZero(t, precedent.Id)

	recent, err := system.Precedents().GetRecentPrecedents(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "apple cider vinegar", recent[0].ProductDescription)
	assert.Equal(t, precedent.Code, recent[0].Code)
}

func TestSystemDegradesWhenEmbeddingBackendDown(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("backend unreachable")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockTextGenerator())

	// An unreachable embedding backend must not abort startup; the system
	// comes up with an empty matrix and searches return no candidates.
	system, err := NewSystem(context.Background(), "", strings.NewReader(testTaxonomyCSV),
		WithProvider(provider),
		WithInMemoryStorage(),
		WithEmbeddingCacheDir(t.TempDir()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })

	assert.Equal(t, 0, system.EmbeddingRows())

	candidates, err := system.Search(context.Background(), "sparkling apple juice", 0.6)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSystemSearch(t *testing.T) {
	system := newTestSystem(t, mock.NewMockTextGenerator())

	candidates, err := system.Search(context.Background(), "non-alcoholic beverage", 0.6)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.SimilarityScore, float32(0.6))
	}
	assert.Equal(t, 3, system.EmbeddingRows())
	assert.Len(t, system.Taxonomy().Leaves(), 3)
}
