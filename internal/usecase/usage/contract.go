package usage

import domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"

// BudgetReader provides read-only access to generation token counters.
type BudgetReader interface {
	Report(period domusage.Period) domusage.Report
}
