// services/diag/timer.go
package diag

import "time"

// resetTimer stops, drains, and rearms t.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
