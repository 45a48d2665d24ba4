package scenario

import (
	"fmt"

	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/montecarlo"
)

// Warning 권장 위반 (경고만, 실행은 계속)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lint reports inputs that are valid but probably not what the author meant.
// Call it on an input that already passed Validate.
func Lint(in montecarlo.Input) []Warning {
	var out []Warning

	if in.IsProbabilistic() && in.NumSimulations < 1000 {
		out = append(out, Warning{"W001", fmt.Sprintf("num_simulations=%d: tail percentiles will be noisy below 1000", in.NumSimulations)})
	}
	if r := in.AnnualRate; (r.Max != nil && *r.Max > 30) || (r.Deterministic != nil && *r.Deterministic > 30) {
		out = append(out, Warning{"W002", "annual_rate above 30% a year"})
	}
	if in.Goal == 0 {
		out = append(out, Warning{"W003", "goal is 0: it is always reported as achieved"})
	}
	if list, ok := in.Events.(events.List); ok {
		months := in.Months()
		for _, e := range list {
			if m := events.RelativeMonth(e.Date, in.StartDate); m < 0 || m >= months {
				out = append(out, Warning{"W004", fmt.Sprintf("event %s is outside the horizon and is ignored", e)})
			}
		}
	}
	if !in.IsProbabilistic() && in.NumSimulations > 0 {
		out = append(out, Warning{"W005", "no parameter has a range: only the deterministic projection is computed"})
	}
	return out
}
