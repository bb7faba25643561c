// Package scheduler runs the periodic jobs of the API process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/notification"
)

type Scheduler struct {
	cron     *cron.Cron
	notifSvc notification.Service
	logger   core.Logger
	timeout  time.Duration
}

func New(notifSvc notification.Service, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger{logger}))),
		notifSvc: notifSvc,
		logger:   logger,
		timeout:  5 * time.Minute,
	}
}

// AddDueReminders schedules SendDueReminders on spec, a standard 5-field cron expression.
func (s *Scheduler) AddDueReminders(spec string, daysAhead int) error {
	_, err := s.cron.AddFunc(spec, func() { s.RunDueReminders(daysAhead) })
	return errors.Wrapf(err, "scheduling due reminders %q", spec)
}

func (s *Scheduler) RunDueReminders(daysAhead int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sent, err := s.notifSvc.SendDueReminders(ctx, core.Today(), daysAhead)
	if err != nil {
		s.logger.Error("sending due reminders", err)
		return
	}
	s.logger.Info(fmt.Sprintf("due reminders: %d sent", sent))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues), err)
}
