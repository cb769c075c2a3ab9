package simulate

import (
	"fmt"
	"sort"
)

// verify fills Result.Missing and fails when any candidate errored or did
// not receive every violation its scenario must produce.
func verify(results []Result) error {
	var failed []string
	for i := range results {
		r := &results[i]
		for _, kind := range r.Scenario.Expected() {
			if r.Violations[kind.String()] == 0 {
				r.Missing = append(r.Missing, kind.String())
			}
		}
		sort.Strings(r.Missing)
		if r.Error != "" || len(r.Missing) > 0 {
			failed = append(failed, r.SubjectID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d candidates", ErrVerification, len(failed), len(results))
	}
	return nil
}
