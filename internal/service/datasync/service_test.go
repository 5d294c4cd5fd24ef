package datasync

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestService_RunsAndStopsItself(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 3, StepDelay: time.Millisecond}, testLogger())
	assert.Equal(t, domain.ServiceCreated, svc.Status().State)

	runID, started, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, started)

	require.NoError(t, svc.Wait(waitCtx(t)))

	st := svc.Status()
	assert.Equal(t, domain.ServiceStopped, st.State)
	assert.Equal(t, 1, st.Runs)
	require.NotNil(t, st.RunID)
	assert.Equal(t, runID, *st.RunID)
	require.NotNil(t, st.LastResult)
	assert.True(t, st.LastResult.Succeeded())
	assert.JSONEq(t, `{"steps":3}`, trimDuration(t, st.LastResult.Payload))
}

func TestService_StartIsSingleton(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 1, StepDelay: time.Hour}, testLogger())
	defer svc.Destroy()

	first, started, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.True(t, started)

	second, started, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.Status().Runs)
	assert.Equal(t, domain.ServiceRunning, svc.Status().State)
}

func TestService_RestartAfterStop(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 1, StepDelay: time.Millisecond}, testLogger())

	first, _, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Wait(waitCtx(t)))

	second, started, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, started)
	assert.NotEqual(t, first, second)
	require.NoError(t, svc.Wait(waitCtx(t)))
	assert.Equal(t, 2, svc.Status().Runs)
}

func TestService_RunSurvivesCallerCancellation(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 2, StepDelay: 5 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	_, _, err := svc.Start(ctx)
	require.NoError(t, err)
	cancel()

	require.NoError(t, svc.Wait(waitCtx(t)))
	assert.True(t, svc.Status().LastResult.Succeeded())
}

func TestService_DestroyCancelsRun(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 3, StepDelay: time.Hour}, testLogger())

	_, _, err := svc.Start(context.Background())
	require.NoError(t, err)

	svc.Destroy()
	require.NoError(t, svc.Wait(waitCtx(t)))

	st := svc.Status()
	assert.Equal(t, domain.ServiceStopped, st.State)
	require.NotNil(t, st.LastResult)
	assert.False(t, st.LastResult.Succeeded())
	assert.ErrorIs(t, st.LastResult.Err(), context.Canceled)

	_, _, err = svc.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrServiceStopped)
}

func TestService_WaitWithoutRun(t *testing.T) {
	svc := NewService(config.SyncConfig{Steps: 1}, testLogger())
	assert.NoError(t, svc.Wait(context.Background()))
	assert.Nil(t, svc.Status().RunID)
}
