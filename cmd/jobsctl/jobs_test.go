package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/jobs"
)

func newCLI(t *testing.T) *JobsCLI {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli := newCLI(t)
	_, err := cli.Trigger(context.Background(), "finance:close")
	require.Error(t, err)
}

func TestInspectUnknownQueueIsEmpty(t *testing.T) {
	cli := newCLI(t)
	stats, err := cli.InspectQueue(jobs.QueueSync)
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: jobs.QueueSync}, stats)
}

func TestRetryArchivedSyncsWithoutQueue(t *testing.T) {
	cli := newCLI(t)
	n, err := cli.RetryArchivedSyncs()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestNilCLI(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), jobs.TaskReportRefresh)
	require.Error(t, err)
	_, err = cli.InspectQueue(jobs.QueueDefault)
	require.Error(t, err)
}
