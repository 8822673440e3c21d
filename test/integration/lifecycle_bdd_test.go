//go:build integration

package integration

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"screentime/internal/config"
	"screentime/internal/domain"
	"screentime/internal/infra"
	"screentime/internal/usecase"
)

var _ = Describe("Engine Lifecycle", func() {
	var (
		dataDir  string
		clock    *domain.TestClock
		defaults func() *domain.Ledger
	)

	newEngine := func() *usecase.Engine {
		store, err := infra.NewFileStore(dataDir)
		Expect(err).NotTo(HaveOccurred())
		// TickPeriod zero: accrual is driven by explicit Tick calls
		// so the specs stay deterministic.
		return usecase.NewEngine(usecase.EngineConfig{}, store, clock, nil, defaults, nil)
	}

	BeforeEach(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "screentime-integration-*")
		Expect(err).NotTo(HaveOccurred())

		clock = &domain.TestClock{
			CurrentTime: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		}
		cfg := &config.Config{
			ChildName: "Alex",
			Limits:    config.LimitsConfig{DefaultAppMinutes: 10, TotalMinutes: 240},
		}
		defaults = cfg.NewDefaultLedger
	})

	AfterEach(func() {
		os.RemoveAll(dataDir)
	})

	Describe("accrual across process restarts", func() {
		Context("when the process exits while a timer is running", func() {
			It("should keep accruing from the persisted start time", func() {
				first := newEngine()
				Expect(first.Start("youtube")).To(Succeed())
				first.Close()

				// 90 seconds pass while no process is alive.
				clock.Advance(90 * time.Second)

				second := newEngine()
				defer second.Close()

				snap := second.Snapshot()
				app := snap.App("youtube")
				Expect(app.Running).To(BeTrue())
				Expect(app.UsedSeconds).To(Equal(int64(90)))
				Expect(usecase.StatusOf(app)).To(Equal(domain.StatusRunning))
			})
		})

		Context("when the limit elapses while no process is alive", func() {
			It("should lock the app during rehydration", func() {
				first := newEngine()
				Expect(first.Start("youtube")).To(Succeed())
				first.Close()

				// Default limit is 10 minutes; stay away for an hour.
				clock.Advance(time.Hour)

				second := newEngine()
				defer second.Close()

				snap := second.Snapshot()
				app := snap.App("youtube")
				Expect(app.Running).To(BeFalse())
				Expect(app.UsedSeconds).To(Equal(int64(600)))
				Expect(usecase.StatusOf(app)).To(Equal(domain.StatusLocked))

				last := snap.EventLog[len(snap.EventLog)-1]
				Expect(last.Kind).To(Equal(domain.EventStop))
				Expect(last.ReachedLimit).To(BeTrue())

				Expect(second.Start("youtube")).To(MatchError(domain.ErrLimitReached))
			})
		})
	})

	Describe("limit enforcement", func() {
		It("should stop and clamp the app when a tick crosses the limit", func() {
			engine := newEngine()
			defer engine.Close()

			Expect(engine.Start("games")).To(Succeed())
			clock.Advance(601 * time.Second)
			engine.Tick("games")

			app := engine.Snapshot().App("games")
			Expect(app.Running).To(BeFalse())
			Expect(app.UsedSeconds).To(Equal(int64(600)))
			Expect(usecase.StatusOf(app)).To(Equal(domain.StatusLocked))
		})

		It("should survive a restart after locking", func() {
			engine := newEngine()
			Expect(engine.Start("games")).To(Succeed())
			clock.Advance(601 * time.Second)
			engine.Tick("games")
			engine.Close()

			reopened := newEngine()
			defer reopened.Close()

			app := reopened.Snapshot().App("games")
			Expect(usecase.StatusOf(app)).To(Equal(domain.StatusLocked))
		})
	})

	Describe("reset-all", func() {
		It("should discard usage, events and the snapshot file", func() {
			engine := newEngine()
			Expect(engine.Start("tiktok")).To(Succeed())
			clock.Advance(30 * time.Second)
			Expect(engine.Stop("tiktok")).To(Succeed())

			engine.ResetAll()
			engine.Close()

			snap := engine.Snapshot()
			Expect(snap.App("tiktok").UsedSeconds).To(BeZero())
			Expect(snap.EventLog).To(BeEmpty())

			// The fresh default state was re-persisted.
			reopened := newEngine()
			defer reopened.Close()
			Expect(reopened.Snapshot().App("tiktok").UsedSeconds).To(BeZero())
		})
	})

	Describe("shutdown", func() {
		It("should finalize running apps so nothing accrues while away", func() {
			engine := newEngine()
			Expect(engine.Start("instagram")).To(Succeed())
			clock.Advance(45 * time.Second)
			engine.Shutdown()

			clock.Advance(time.Hour)

			reopened := newEngine()
			defer reopened.Close()

			app := reopened.Snapshot().App("instagram")
			Expect(app.Running).To(BeFalse())
			Expect(app.UsedSeconds).To(Equal(int64(45)))
		})
	})
})
