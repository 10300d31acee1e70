package rank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func newRanker(t *testing.T, historical, current string) *Ranker {
	t.Helper()
	dir := t.TempDir()
	histPath := filepath.Join(dir, "historical.txt")
	curPath := filepath.Join(dir, "current.txt")
	if historical != "" {
		writeLines(t, histPath, historical)
	}
	if current != "" {
		writeLines(t, curPath, current)
	}
	r, err := New(histPath, curPath)
	require.NoError(t, err)
	return r
}

func TestStrictPercentile_Extremes(t *testing.T) {
	pop := []float64{1, 2, 3, 4}
	assert.Equal(t, 0.0, strictPercentile(pop, 1), "minimum element ranks at 0")
	assert.Equal(t, 100.0, strictPercentile(pop, 5), "value above all ranks at 100")
	assert.Equal(t, 50.0, strictPercentile(pop, 3))
}

func TestStrictPercentile_TiesNotCounted(t *testing.T) {
	pop := []float64{2, 2, 2, 5}
	assert.Equal(t, 0.0, strictPercentile(pop, 2))
	assert.Equal(t, 75.0, strictPercentile(pop, 5))
}

func TestRank_EmptyCurrentSeasonSentinel(t *testing.T) {
	r := newRanker(t, "1\n2\n3\n", "")
	res, err := r.Rank(2.5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.CurrentSeason, "no basis for comparison yet")
	assert.InDelta(t, 100.0*2/3, res.Historical, 1e-9)
}

func TestRank_HistoricalIncludesCurrentSeason(t *testing.T) {
	r := newRanker(t, "10\n20\n", "1\n2\n")
	res, err := r.Rank(15)
	require.NoError(t, err)
	// Current: both of {1,2} below. Historical: {10,20,1,2}, 3 of 4 below.
	assert.Equal(t, 100.0, res.CurrentSeason)
	assert.Equal(t, 75.0, res.Historical)
}

func TestRank_AppendsAndPersists(t *testing.T) {
	dir := t.TempDir()
	histPath := filepath.Join(dir, "historical.txt")
	curPath := filepath.Join(dir, "current.txt")
	writeLines(t, histPath, "1\n")

	r, err := New(histPath, curPath)
	require.NoError(t, err)

	_, err = r.Rank(3)
	require.NoError(t, err)
	_, err = r.Rank(5)
	require.NoError(t, err)

	// A fresh ranker sees the persisted population.
	reloaded, err := New(histPath, curPath)
	require.NoError(t, err)
	cur, hist := reloaded.Size()
	assert.Equal(t, 2, cur)
	assert.Equal(t, 1, hist)

	res := reloaded.Preview(4)
	assert.Equal(t, 50.0, res.CurrentSeason)
}

func TestRank_PopulationIsMonotonic(t *testing.T) {
	r := newRanker(t, "", "")
	for i := range 5 {
		_, err := r.Rank(float64(i))
		require.NoError(t, err)
		cur, _ := r.Size()
		assert.Equal(t, i+1, cur)
	}
}

func TestPreview_DoesNotAppend(t *testing.T) {
	r := newRanker(t, "", "1\n2\n")
	res := r.Preview(10)
	assert.Equal(t, 100.0, res.CurrentSeason)
	cur, _ := r.Size()
	assert.Equal(t, 2, cur)
}

func TestNew_MalformedPopulation(t *testing.T) {
	dir := t.TempDir()
	histPath := filepath.Join(dir, "historical.txt")
	writeLines(t, histPath, "1\nnot-a-number\n")

	_, err := New(histPath, filepath.Join(dir, "current.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse population value")
}

func TestNew_MissingHistoricalTolerated(t *testing.T) {
	dir := t.TempDir()
	r, err := New(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "current.txt"))
	require.NoError(t, err)
	_, hist := r.Size()
	assert.Equal(t, 0, hist)
}
