package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func TestDefaultRules_Valid(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
}

func TestLoadRules_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
revenue_ranges:
  golf_coaching:
    min: 60
    max: 95
default_action: "Do something else"
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	// Overridden values take effect.
	assert.Equal(t, Range{Min: 60, Max: 95}, rules.RangeFor(model.TypeGolfCoaching))
	assert.Equal(t, "Do something else", rules.ActionFor(model.TypeGeneral))

	// Untouched defaults survive.
	assert.Equal(t, Range{Min: 70, Max: 80}, rules.RangeFor(model.TypePartnership))
	assert.NotEmpty(t, rules.UrgencyKeywords)
}

func TestLoadRules_RejectsInvertedRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
revenue_ranges:
  coaching:
    min: 90
    max: 10
`), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min 90 > max 10")
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestRangeFor_UnknownTypeFallsBack(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, rules.DefaultRange, rules.RangeFor("mystery"))
}
