package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList(" Groq:fast | openai:key1|openai:key2|groq:fast|mock ")
	require.Len(t, refs, 4)
	assert.Equal(t, "groq", refs[0].Name)
	assert.Equal(t, "fast", refs[0].KeyAlias)
	assert.Equal(t, "Groq:fast", refs[0].Raw)
	assert.Equal(t, "openai:key2", refs[2].String())
	assert.Equal(t, "mock", refs[3].String())
}

func TestParseProviderListDefaultsToMock(t *testing.T) {
	for _, raw := range []string{"", " | ", ":alias"} {
		refs := ParseProviderList(raw)
		require.Len(t, refs, 1, raw)
		assert.Equal(t, "mock", refs[0].Name)
	}
}
