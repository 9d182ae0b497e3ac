package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler owns the background jobs: scheduled news publishing, the sales-tip
// broadcast and the license expiry sweep.
type Scheduler struct {
	sched gocron.Scheduler
}

type SchedulerDeps struct {
	News     *NewsService
	Licenses *LicenseService
	Tips     *SalesTipBroadcaster
	TipsCron string
	Location *time.Location
}

func NewScheduler(deps SchedulerDeps) (*Scheduler, error) {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	if deps.News != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(time.Minute),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
				defer cancel()
				if _, err := deps.News.PublishDue(ctx); err != nil {
					log.Errorf("❌ [SCHEDULER] news publish: %v", err)
				}
			}),
			gocron.WithName("news-publish"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	if deps.Licenses != nil {
		if _, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
			gocron.NewTask(func() {
				n, err := deps.Licenses.ExpireOverdue(context.Background())
				if err != nil {
					log.Errorf("❌ [SCHEDULER] license sweep: %v", err)
					return
				}
				if n > 0 {
					log.Warnf("⚠️ [SCHEDULER] %d license(s) expired", n)
				}
			}),
			gocron.WithName("license-expiry"),
		); err != nil {
			return nil, err
		}
	}

	if deps.Tips != nil && deps.TipsCron != "" {
		if _, err := sched.NewJob(
			gocron.CronJob(deps.TipsCron, false),
			gocron.NewTask(func() {
				if _, err := deps.Tips.Run(context.Background()); err != nil {
					log.Errorf("❌ [SCHEDULER] sales tips: %v", err)
				}
			}),
			gocron.WithName("sales-tips"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	return &Scheduler{sched: sched}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.Printf("✅ [SCHEDULER] started %d job(s)", len(s.sched.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
