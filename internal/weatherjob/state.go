package weatherjob

import "agrisa-ops/internal/models"

// monotonicFilter drops snapshots that would move a job backwards or repeat
// a status already reported. Once a terminal status passes, everything else
// is dropped.
type monotonicFilter struct {
	last models.WeatherJobStatus
}

func (f *monotonicFilter) accept(status models.WeatherJobStatus) bool {
	if f.last == "" {
		if !status.IsValid() {
			return false
		}
		f.last = status
		return true
	}
	if !f.last.Advances(status) {
		return false
	}
	f.last = status
	return true
}

func (f *monotonicFilter) done() bool {
	return f.last.IsTerminal()
}
