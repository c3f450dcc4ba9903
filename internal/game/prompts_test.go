package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptSelectorExcludesUsed(t *testing.T) {
	catalog := []string{"alpha", "beta", "gamma"}
	ps := NewPromptSelector(catalog)

	used := []string{"alpha", "gamma"}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "beta", ps.Next(used))
	}
}

func TestPromptSelectorRecyclesWhenExhausted(t *testing.T) {
	catalog := []string{"alpha", "beta"}
	ps := NewPromptSelector(catalog)

	got := ps.Next(catalog)
	assert.Contains(t, catalog, got)
}

func TestPromptSelectorDefaultCatalog(t *testing.T) {
	ps := NewPromptSelector(nil)
	assert.Equal(t, len(DefaultPrompts), ps.Size())
	assert.Contains(t, DefaultPrompts, ps.Next(nil))
}

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	content := "# party pack\nName a food\n\n  Name a cow  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name a food", "Name a cow"}, prompts)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
