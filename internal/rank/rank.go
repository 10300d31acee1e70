// Package rank computes strict percentile ranks against two score
// populations: the append-only current season and an immutable historical
// baseline.
package rank

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Ranker holds the two populations. The historical population never
// changes after load; the current-season population only grows.
type Ranker struct {
	mu          sync.Mutex
	historical  []float64
	current     []float64
	currentPath string
}

// New loads the historical baseline and the current-season population.
// A missing current file means an empty population (start of season); a
// missing historical file is tolerated with a warning, every punt of the
// season then ranks against current scores only.
func New(historicalPath, currentPath string) (*Ranker, error) {
	historical, err := readPopulation(historicalPath)
	if err != nil {
		if !os.IsNotExist(eris.Cause(err)) {
			return nil, err
		}
		zap.L().Warn("rank: no historical baseline, ranking against current season only",
			zap.String("path", historicalPath),
		)
	}

	current, err := readPopulation(currentPath)
	if err != nil && !os.IsNotExist(eris.Cause(err)) {
		return nil, err
	}

	return &Ranker{
		historical:  historical,
		current:     current,
		currentPath: currentPath,
	}, nil
}

// Rank computes both percentiles for a score, then appends the score to
// the current-season population and rewrites it in full. The write is
// correctness-critical: losing it loses ranking history for the season,
// so a failure is returned alongside the (already valid) result.
func (r *Ranker) Rank(score float64) (model.PercentileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.rankLocked(score)
	r.current = append(r.current, score)
	if err := writePopulation(r.currentPath, r.current); err != nil {
		return result, err
	}
	return result, nil
}

// Preview ranks a score without recording it, for informational scores
// such as the unadjusted index of a delay-of-game punt.
func (r *Ranker) Preview(score float64) model.PercentileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankLocked(score)
}

// Size returns the sizes of the current and historical populations.
func (r *Ranker) Size() (current, historical int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.current), len(r.historical)
}

func (r *Ranker) rankLocked(score float64) model.PercentileResult {
	all := make([]float64, 0, len(r.historical)+len(r.current))
	all = append(all, r.historical...)
	all = append(all, r.current...)

	return model.PercentileResult{
		CurrentSeason: strictPercentile(r.current, score),
		Historical:    strictPercentile(all, score),
	}
}

// strictPercentile is the percentage of population values strictly less
// than x. An empty population has no basis for comparison; the score is
// treated as novel and ranks at 100.
func strictPercentile(population []float64, x float64) float64 {
	if len(population) == 0 {
		return 100
	}
	below := 0
	for _, v := range population {
		if v < x {
			below++
		}
	}
	return float64(below) / float64(len(population)) * 100
}
