package usecase

import (
	"fmt"
	"math"

	"screentime/internal/domain"
)

// StatusOf derives the display status for one app. This is the single
// source of the Locked derivation; nothing else may re-implement it.
func StatusOf(a *domain.App) domain.Status {
	if a.Running {
		return domain.StatusRunning
	}
	if !a.Unlimited() && a.UsedSeconds >= a.LimitSeconds {
		return domain.StatusLocked
	}
	return domain.StatusStopped
}

// Project computes the dashboard read model from a settled ledger
// snapshot. Pure: no side effects, no persistence, safe to call at
// any rate.
func Project(l *domain.Ledger) domain.ViewModel {
	vm := domain.ViewModel{
		ChildName:         l.ChildName,
		TotalLimitSeconds: l.TotalLimitSeconds,
		Apps:              make([]domain.AppView, 0, len(l.Apps)),
	}

	for _, a := range l.Apps {
		vm.TotalUsedSeconds += a.UsedSeconds
		vm.Apps = append(vm.Apps, domain.AppView{
			ID:           a.ID,
			Label:        a.Label,
			Color:        a.Color,
			Icon:         a.Icon,
			UsedSeconds:  a.UsedSeconds,
			LimitSeconds: a.LimitSeconds,
			Status:       StatusOf(a),
		})
	}

	if vm.TotalLimitSeconds > 0 {
		pct := int(math.Round(100 * float64(vm.TotalUsedSeconds) / float64(vm.TotalLimitSeconds)))
		if pct > 100 {
			pct = 100
		}
		vm.UsedPercent = pct
	}

	return vm
}

// FormatHMS renders seconds as HH:MM:SS for display.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
