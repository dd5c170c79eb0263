package capture

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrInconsistent wraps every reconciliation failure: count mismatch between
// pods and captures, or ensemble members reporting unexpected parameters.
var ErrInconsistent = errors.New("inconsistent experiment")

// Result is what a capture run observed.
type Result struct {
	// Counts holds the unique pod count, the tail capture count and the
	// sanity capture count. A correct run collapses them to one value.
	Counts sets.Set[int]
	// EnsembleSizes and RandomWeights are the distinct values reported in
	// INIT lines. Each should be a singleton.
	EnsembleSizes sets.Set[int]
	RandomWeights sets.Set[float64]
}

// NewResult creates a Result from the three capture counts.
func NewResult(uniquePods, tails, sanities int) *Result {
	return &Result{
		Counts:        sets.New(uniquePods, tails, sanities),
		EnsembleSizes: sets.New[int](),
		RandomWeights: sets.New[float64](),
	}
}

// Observe records the parameters one ensemble member reported.
func (r *Result) Observe(ensembleSize int, randomWeight float64) {
	r.EnsembleSizes.Insert(ensembleSize)
	r.RandomWeights.Insert(randomWeight)
}

// Verify checks the result against the experiment's intended parameters and
// returns the number of pods (and capture pairs) used.
func (r *Result) Verify(expectedSize int, expectedWeight float64) (int, error) {
	if r.Counts.Len() != 1 {
		return 0, fmt.Errorf("%w: mismatch in count of unique pods and capturing processes: %v",
			ErrInconsistent, sets.List(r.Counts))
	}
	count := sets.List(r.Counts)[0]

	if r.EnsembleSizes.Len() != 1 {
		return 0, fmt.Errorf("%w: mismatch in ensemble size: %v", ErrInconsistent, sets.List(r.EnsembleSizes))
	}
	if size := sets.List(r.EnsembleSizes)[0]; size != expectedSize {
		return 0, fmt.Errorf("%w: expected ensemble size %d but got %d", ErrInconsistent, expectedSize, size)
	}

	if r.RandomWeights.Len() != 1 {
		return 0, fmt.Errorf("%w: mismatch in random weight: %v", ErrInconsistent, sets.List(r.RandomWeights))
	}
	if weight := sets.List(r.RandomWeights)[0]; weight != expectedWeight {
		return 0, fmt.Errorf("%w: expected random weight %v but got %v", ErrInconsistent, expectedWeight, weight)
	}

	return count, nil
}
