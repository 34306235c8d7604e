package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/config"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
	testdb "github.com/codeready-toolchain/meetingcore/test/database"
	"github.com/stretchr/testify/require"
)

func TestService_PurgesOldTerminalJobs(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	meetingStore := store.NewMeetingStore(client.Pool)
	meetingID, err := meetingStore.Create(ctx, &store.Meeting{
		MeetingID:       "cleanup-test-meeting",
		Subject:         "Retention test",
		StartTime:       time.Now().Add(-2 * time.Hour),
		EndTime:         time.Now().Add(-1 * time.Hour),
		DurationMinutes: 60,
		Status:          "discovered",
		DiscoverySource: "test",
		DiscoveredAt:    time.Now(),
	})
	require.NoError(t, err)

	jobStore := queue.NewStore(client.Pool)
	fetchID, _, _, err := jobStore.EnqueueChain(ctx, queue.ChainInput{MeetingID: meetingID})
	require.NoError(t, err)
	require.NoError(t, jobStore.MarkCompleted(ctx, fetchID, []byte(`{}`)))

	_, err = client.Pool.Exec(ctx,
		`UPDATE jobs SET completed_at = $1 WHERE id = $2`,
		time.Now().Add(-60*24*time.Hour), fetchID)
	require.NoError(t, err)

	svc := NewService(config.RetentionYAMLConfig{
		JobAge:        30 * 24 * time.Hour,
		CheckInterval: time.Hour,
	}, jobStore)
	svc.runAll(ctx)

	_, err = jobStore.GetByID(ctx, fetchID)
	require.Error(t, err, "purged job should no longer be found")
}

func TestService_PreservesRecentJobs(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	meetingStore := store.NewMeetingStore(client.Pool)
	meetingID, err := meetingStore.Create(ctx, &store.Meeting{
		MeetingID:       "cleanup-test-meeting-recent",
		Subject:         "Retention test recent",
		StartTime:       time.Now().Add(-2 * time.Hour),
		EndTime:         time.Now().Add(-1 * time.Hour),
		DurationMinutes: 60,
		Status:          "discovered",
		DiscoverySource: "test",
		DiscoveredAt:    time.Now(),
	})
	require.NoError(t, err)

	jobStore := queue.NewStore(client.Pool)
	fetchID, _, _, err := jobStore.EnqueueChain(ctx, queue.ChainInput{MeetingID: meetingID})
	require.NoError(t, err)
	require.NoError(t, jobStore.MarkCompleted(ctx, fetchID, []byte(`{}`)))

	svc := NewService(config.RetentionYAMLConfig{
		JobAge:        30 * 24 * time.Hour,
		CheckInterval: time.Hour,
	}, jobStore)
	svc.runAll(ctx)

	job, err := jobStore.GetByID(ctx, fetchID)
	require.NoError(t, err)
	require.NotNil(t, job)
}
