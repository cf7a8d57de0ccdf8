package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/scheduler"
)

// yearly 测试期间不会自然触发的 cron 表达式.
const yearly = "0 0 1 1 *"

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func waitRuns(t *testing.T, s *scheduler.Scheduler, name string, runs int64) scheduler.JobInfo {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)

	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName(name)
		if err != nil {
			t.Fatalf("job info %s: %v", name, err)
		}

		if info.Runs >= runs && info.Status != scheduler.StatusRunning {
			return info
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("job %s did not reach %d runs", name, runs)

	return scheduler.JobInfo{}
}

func TestRunNowRecordsResult(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()

	if err := s.AddCron(ctx, "retention", yearly, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add ok job: %v", err)
	}

	if err := s.AddCron(ctx, "broken", yearly, func(context.Context) error { return errors.New("boom") }); err != nil {
		t.Fatalf("add failing job: %v", err)
	}

	if err := s.AddCron(ctx, "panics", yearly, func(context.Context) error { panic("oops") }); err != nil {
		t.Fatalf("add panicking job: %v", err)
	}

	s.Start()

	for _, name := range []string{"retention", "broken", "panics"} {
		if err := s.RunNow(name); err != nil {
			t.Fatalf("run %s: %v", name, err)
		}
	}

	if info := waitRuns(t, s, "retention", 1); info.Status != scheduler.StatusScheduled || info.LastSuccess.IsZero() {
		t.Errorf("retention info = %+v", info)
	}

	if info := waitRuns(t, s, "broken", 1); info.Status != scheduler.StatusError || info.Error != "boom" {
		t.Errorf("broken info = %+v", info)
	}

	if info := waitRuns(t, s, "panics", 1); info.Status != scheduler.StatusError || info.Error == "" {
		t.Errorf("panics info = %+v", info)
	}
}

func TestJobRegistry(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	for _, name := range []string{"paste.prune", "index.verify", "retention.sweep"} {
		if err := s.AddCron(ctx, name, yearly, noop); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	if err := s.AddCron(ctx, "index.verify", yearly, noop); err == nil {
		t.Error("duplicate job name should fail")
	}

	if err := s.AddCron(ctx, "bad", "not a cron", noop); err == nil {
		t.Error("invalid cron expression should fail")
	}

	infos := s.GetJobInfos()
	if len(infos) != 3 || infos[0].Name != "index.verify" || infos[2].Name != "retention.sweep" {
		t.Fatalf("infos = %+v", infos)
	}

	if infos[0].CronExpr != yearly || infos[0].ID == "" {
		t.Errorf("info = %+v", infos[0])
	}

	if err := s.RemoveJobByName("paste.prune"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := s.GetJobInfoByName("paste.prune"); err == nil {
		t.Error("removed job still listed")
	}

	if err := s.RunNow("paste.prune"); err == nil {
		t.Error("RunNow on removed job should fail")
	}
}
