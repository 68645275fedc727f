package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"loa-bot/internal/models"
	"loa-bot/internal/platform"
	"loa-bot/internal/repository"
	"loa-bot/internal/scheduler"
	"loa-bot/internal/service"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeApplier struct {
	mu      sync.Mutex
	failFor map[string]error
	applied []service.Intent
}

func (a *fakeApplier) Apply(_ context.Context, _ string, intents []service.Intent) service.Outcomes {
	a.mu.Lock()
	defer a.mu.Unlock()

	var outcomes service.Outcomes
	for _, intent := range intents {
		a.applied = append(a.applied, intent)
		var err error
		if intent.Kind == service.IntentRevokeMarker {
			err = a.failFor[intent.SubjectID]
		}
		outcomes = append(outcomes, service.Outcome{Intent: intent, Err: err})
	}
	return outcomes
}

func (a *fakeApplier) revoked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ids []string
	for _, intent := range a.applied {
		if intent.Kind == service.IntentRevokeMarker {
			ids = append(ids, intent.SubjectID)
		}
	}
	return ids
}

type countingCloser struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCloser) SweepExpired(context.Context, time.Time) ([]service.ClosedLeave, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, c.err
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newStore(t *testing.T) (*service.LeaveService, *repository.GormLeaveRepository) {
	t.Helper()

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "loa.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repo, err := repository.NewGormLeaveRepository(db, time.UTC, nil)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	return service.NewLeaveService(repo, logger), repo
}

func TestSweeper_RunNow_PlatformFailureDoesNotResurrect(t *testing.T) {
	// GIVEN: two expired leaves and a platform that rejects A's revoke
	svc, repo := newStore(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &models.Leave{SubjectID: "A", StartDate: jan1, EndDate: jan1.Add(time.Hour), Reason: "x"}))
	require.NoError(t, repo.Upsert(ctx, &models.Leave{SubjectID: "B", StartDate: jan1, EndDate: jan1.Add(2 * time.Hour), Reason: "y"}))

	applier := &fakeApplier{failFor: map[string]error{"A": platform.ErrPermissionDenied}}
	logger, hook := test.NewNullLogger()
	sweeper := scheduler.NewExpirationSweeper(svc, applier, logger)
	sweeper.Now = func() time.Time { return jan1.AddDate(0, 0, 1) }

	// WHEN
	closed, err := sweeper.RunNow(ctx)

	// THEN: both are closed and stay closed
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	assert.ElementsMatch(t, []string{"A", "B"}, applier.revoked())

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	closed, err = sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Expired leave closed but intent failed" && entry.Data["subject_id"] == "A" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSweeper_RunNow_LeavesActiveRecords(t *testing.T) {
	svc, repo := newStore(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &models.Leave{SubjectID: "A", StartDate: jan1, EndDate: jan1.AddDate(0, 0, 7), Reason: "x"}))

	applier := &fakeApplier{}
	sweeper := scheduler.NewExpirationSweeper(svc, applier, nil)
	sweeper.Now = func() time.Time { return jan1.AddDate(0, 0, 7) }

	closed, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Empty(t, applier.applied)
}

func TestSweeper_RunNow_StoreFailure(t *testing.T) {
	closer := &countingCloser{err: errors.New("disk gone")}
	sweeper := scheduler.NewExpirationSweeper(closer, &fakeApplier{}, nil)

	_, err := sweeper.RunNow(context.Background())
	assert.Error(t, err)
}

func TestSweeper_RunNow_CancelledCallerStillDispatches(t *testing.T) {
	svc, repo := newStore(t)
	require.NoError(t, repo.Upsert(context.Background(), &models.Leave{SubjectID: "A", StartDate: jan1, EndDate: jan1.Add(time.Hour), Reason: "x"}))

	applier := &fakeApplier{}
	sweeper := scheduler.NewExpirationSweeper(svc, applier, nil)
	sweeper.Now = func() time.Time { return jan1.AddDate(0, 0, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	closed, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, []string{"A"}, applier.revoked())

	got, err := repo.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSweeper_StartStop(t *testing.T) {
	closer := &countingCloser{}
	sweeper := scheduler.NewExpirationSweeper(closer, &fakeApplier{}, nil)
	sweeper.Interval = 10 * time.Millisecond

	sweeper.Start()
	sweeper.Start()
	assert.Eventually(t, func() bool { return closer.count() >= 2 }, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	stopped := closer.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, closer.count())

	sweeper.Stop()
}

func TestSweeper_Disabled(t *testing.T) {
	closer := &countingCloser{}
	sweeper := scheduler.NewExpirationSweeper(closer, &fakeApplier{}, nil)
	sweeper.Enabled = false

	sweeper.Start()
	time.Sleep(20 * time.Millisecond)
	sweeper.Stop()

	assert.Zero(t, closer.count())
}
