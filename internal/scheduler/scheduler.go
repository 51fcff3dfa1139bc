package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 함수를 Task로 사용할 수 있게 합니다
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// Scheduler는 간격의 경계 시각마다 작업을 실행하는 스케줄러입니다
type Scheduler struct {
	interval time.Duration
	task     Task
	logger   *zap.Logger
	stopCh   chan struct{}
	now      func() time.Time
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		task:     task,
		logger:   logger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// nextWait는 다음 간격 경계까지 남은 시간을 계산합니다
func (s *Scheduler) nextWait() (time.Time, time.Duration) {
	now := s.now()
	nextRun := now.Truncate(s.interval).Add(s.interval)
	return nextRun, nextRun.Sub(now)
}

// Start는 스케줄러를 시작합니다. ctx가 취소되거나 Stop이 호출될 때까지 반환하지 않습니다.
// 작업이 실패해도 다음 주기는 계속 실행됩니다.
func (s *Scheduler) Start(ctx context.Context) error {
	nextRun, wait := s.nextWait()
	s.logger.Info("next run scheduled",
		zap.Duration("wait", wait.Round(time.Second)),
		zap.Time("next_run", nextRun))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			if err := s.task.Execute(ctx); err != nil {
				s.logger.Error("task failed", zap.Error(err))
			}

			nextRun, wait = s.nextWait()
			s.logger.Info("next run scheduled",
				zap.Duration("wait", wait.Round(time.Second)),
				zap.Time("next_run", nextRun))
			timer.Reset(wait)
		}
	}
}

// Stop은 스케줄러를 중지합니다
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
