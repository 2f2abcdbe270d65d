package optimization

import (
	"fmt"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

// legalTransitions enumerates every allowed CuttingJob.Status edge. A
// transition not listed here fails with errs.InvalidState.
var legalTransitions = map[store.CuttingJobStatus][]store.CuttingJobStatus{
	store.JobPending:      {store.JobOptimizing},
	store.JobOptimizing:   {store.JobOptimized, store.JobFailed},
	store.JobOptimized:    {store.JobInProduction},
	store.JobInProduction: {store.JobCompleted},
}

// checkTransition reports whether moving a CuttingJob from 'from' to 'to'
// is legal, without mutating anything.
func checkTransition(from, to store.CuttingJobStatus) *errs.Error {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return errs.New(errs.InvalidState, fmt.Sprintf("cutting job cannot move from %s to %s", from, to))
}
