package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"aci2netbox/internal/syncer"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSchedulerDefaultSpec(t *testing.T) {
	require.Equal(t, "0 * * * *", NewScheduler("  ", nil, nil).Spec())
	require.Equal(t, "*/5 * * * *", NewScheduler("*/5 * * * *", nil, nil).Spec())
}

func TestSchedulerSkipsWhileRunning(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	s := NewScheduler("", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return nil
	}, zap.New(core))

	j := s.job()
	go func() {
		j.Run()
		close(done)
	}()
	<-started
	j.Run()
	close(release)
	<-done

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.Equal(t, 1, logs.FilterMessage("cron: skip").Len())
	require.Equal(t, 1, logs.FilterMessage("scheduled sync completed").Len())
}

func TestSchedulerRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler("", func(context.Context) error { panic("boom") }, zap.New(core))
	require.NotPanics(t, s.job().Run)
	require.Equal(t, 1, logs.FilterMessage("cron: panic").Len())
}

func TestSchedulerSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	s := NewScheduler("", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("unused")
	}, nil)
	stop := s.Start(ctx)
	defer stop()

	cancel()
	s.runOnce()
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler("not a cron", func(context.Context) error { return nil }, nil)
	stop := s.Start(context.Background())
	stop()
	require.Nil(t, s.cron)
}

func TestHeartbeatLogsLastRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var last *syncer.Stats
	h := NewHeartbeat(func() *syncer.Stats { return last }, zap.New(core))

	h.beat()
	require.Equal(t, 1, logs.FilterMessage("heartbeat: no sync completed yet").Len())

	last = &syncer.Stats{RunID: "run-1"}
	last.Add(&syncer.Result{ObjectType: "Tenant", Created: 2, Failed: 1})
	h.beat()

	entries := logs.FilterMessage("heartbeat").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "run-1", fields["run_id"])
	require.EqualValues(t, 2, fields["created"])
	require.EqualValues(t, 1, fields["failed"])
}
