package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"

	"TodayBrief/config"
)

const jobTimeout = 5 * time.Minute

// Sender posts a named report to a set of chats.
type Sender interface {
	SendReport(ctx context.Context, group string, chatIDs []int64) error
}

type Config struct {
	Time     string // HH:MM, empty disables the job
	Days     string // cron day-of-week field, e.g. "1-5"
	Group    string
	ChatIDs  []int64
	Location *time.Location
}

// Scheduler runs the daily report broadcast.
type Scheduler struct {
	cron   *cron.Cron
	sender Sender
	cfg    Config
	log    log15.Logger
}

func New(cfg Config, sender Sender, log log15.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	adapter := cronLogger{log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		sender: sender,
		cfg:    cfg,
		log:    log,
	}

	if cfg.Time == "" || len(cfg.ChatIDs) == 0 {
		log.Info("scheduled report disabled", "time", cfg.Time, "chats", len(cfg.ChatIDs))
		return s, nil
	}
	spec, err := Spec(cfg.Time, cfg.Days)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("New: bad schedule %q: %w", spec, err)
	}
	log.Info("scheduled report", "spec", spec, "group", cfg.Group, "chats", len(cfg.ChatIDs), "tz", cfg.Location)
	return s, nil
}

// Spec turns "HH:MM" and a day-of-week field into a five-field cron spec.
func Spec(clock, days string) (string, error) {
	h, m, err := config.ParseClock(clock)
	if err != nil {
		return "", err
	}
	days = strings.TrimSpace(days)
	if days == "" {
		days = "*"
	}
	return fmt.Sprintf("%d %d * * %s", m, h, days), nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduled report still running at shutdown")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	s.log.Info("triggering scheduled report", "group", s.cfg.Group)
	if err := s.sender.SendReport(ctx, s.cfg.Group, s.cfg.ChatIDs); err != nil {
		s.log.Error("scheduled report failed", "group", s.cfg.Group, "err", err)
	}
}

type cronLogger struct{ log log15.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
