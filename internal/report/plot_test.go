package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
)

func TestWritePlots(t *testing.T) {
	t.Parallel()

	state := aggregate.NewState(false)
	state.Fold(attributedResult(t, "01"), nil, true)

	path := filepath.Join(t.TempDir(), "plots.html")
	require.NoError(t, WritePlots(state, path, 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "Functions changed per commit")
	assert.Contains(t, html, "Functions changed per commit (1..25)")
	assert.Contains(t, html, "Commits with no function changed, by extension")
}

func TestWritePlotsCreateError(t *testing.T) {
	t.Parallel()

	err := WritePlots(aggregate.NewState(false), filepath.Join(t.TempDir(), "missing", "plots.html"), 0)
	require.Error(t, err)
}
