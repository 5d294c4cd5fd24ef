package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/api/middleware"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/connectivity"
	"github.com/otis-tran/demo-service/internal/events"
	"github.com/otis-tran/demo-service/internal/service/calculator"
	"github.com/otis-tran/demo-service/internal/service/datasync"
	"github.com/otis-tran/demo-service/internal/service/playback"
	"github.com/otis-tran/demo-service/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router    http.Handler
	scheduler *task.ConstrainedScheduler
	store     *task.MemoryTaskStore
	monitor   *connectivity.Monitor
	sync      *datasync.Service
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testLogger()

	store := task.NewMemoryTaskStore()
	cfg := task.DefaultSchedulerConfig()
	cfg.InitialConditions = map[task.Condition]bool{task.ConditionNetworkConnected: false}
	scheduler, err := task.NewConstrainedScheduler(store, cfg, log)
	require.NoError(t, err)
	require.NoError(t, scheduler.Start(context.Background()))
	t.Cleanup(scheduler.Stop)

	monitor := connectivity.NewMonitor(nil, time.Second, false, log)
	monitor.Subscribe(func(connected bool) {
		scheduler.SetCondition(task.ConditionNetworkConnected, connected)
	})

	worker := datasync.NewWorker(config.SyncConfig{Steps: 1, StepDelay: time.Millisecond}, log)
	factoryHandler := task.NewTaskFactoryEventHandler(scheduler, log)
	factoryHandler.RegisterFactory(task.TaskTypeDataSync, datasync.NewWorkerTaskFactory(worker))
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(factoryHandler)

	syncService := datasync.NewService(config.SyncConfig{Steps: 1, StepDelay: time.Millisecond}, log)
	t.Cleanup(syncService.Destroy)

	playbackService := playback.NewService(
		playback.NewLogNotifier(log), playback.NewLogResources(log), playback.PauseReject, log)

	syncHandler := NewSyncHandler(syncService)
	workHandler := NewWorkHandler(emitter, scheduler, store)
	connHandler := NewConnectivityHandler(monitor)
	calcHandler := NewCalculatorHandler(calculator.NewService(log))
	playHandler := NewPlaybackHandler(playbackService)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(log))
	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", syncHandler.StartSync)
		r.Get("/sync", syncHandler.GetSync)
		r.Post("/work", workHandler.CreateWork)
		r.Get("/work/{id}", workHandler.GetWork)
		r.Delete("/work/{id}", workHandler.CancelWork)
		r.Get("/connectivity", connHandler.GetConnectivity)
		r.Put("/connectivity", connHandler.SetConnectivity)
		r.Post("/calculator/bind", calcHandler.Bind)
		r.Delete("/calculator/{id}", calcHandler.Unbind)
		r.Post("/calculator/{id}/{op}", calcHandler.Operate)
		r.Get("/playback", playHandler.GetPlayback)
		r.Post("/playback", playHandler.Command)
		r.Post("/playback/{command}", playHandler.Command)
	})

	return &testEnv{
		router:    r,
		scheduler: scheduler,
		store:     store,
		monitor:   monitor,
		sync:      syncService,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestCalculatorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/calculator/bind", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	bind := decode[BindResponse](t, rr)
	assert.Equal(t, calculator.StateBound, bind.State)
	base := "/api/calculator/" + bind.ConnectionID.String()

	rr = env.do(t, http.MethodPost, base+"/add", `{"a":10,"b":5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"operation":"add","a":10,"b":5,"result":15}`, rr.Body.String())

	rr = env.do(t, http.MethodPost, base+"/divide", `{"a":10,"b":4}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2.5, decode[OperationResponse](t, rr).Result)

	rr = env.do(t, http.MethodPost, base+"/divide", `{"a":10,"b":0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, base+"/add", `{"a":10}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid B: required field", decode[shared.ErrorResponse](t, rr).Error)

	rr = env.do(t, http.MethodPost, base+"/modulo", `{"a":10,"b":3}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodPost, base+"/add", `{"a":10,"b":5}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/calculator/"+uuid.NewString()+"/add", `{"a":1,"b":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/calculator/not-a-uuid/add", `{"a":1,"b":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func newCalculatorRouter(h *CalculatorHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/calculator/bind", h.Bind)
	r.Delete("/api/calculator/{id}", h.Unbind)
	r.Post("/api/calculator/{id}/{op}", h.Operate)
	return r
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCalculatorHandler_UnboundHandlesAreBounded(t *testing.T) {
	h := NewCalculatorHandler(calculator.NewService(testLogger()))
	h.maxUnbound = 8
	router := newCalculatorRouter(h)

	var ids []uuid.UUID
	for i := 0; i < 300; i++ {
		rr := serve(t, router, http.MethodPost, "/api/calculator/bind", "")
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode[BindResponse](t, rr).ConnectionID
		ids = append(ids, id)

		rr = serve(t, router, http.MethodDelete, "/api/calculator/"+id.String(), "")
		require.Equal(t, http.StatusNoContent, rr.Code)
	}

	h.mu.Lock()
	assert.Empty(t, h.conns)
	assert.Len(t, h.unbound, 8)
	assert.Len(t, h.unboundOrder, 8)
	h.mu.Unlock()

	last := "/api/calculator/" + ids[len(ids)-1].String()
	rr := serve(t, router, http.MethodPost, last+"/add", `{"a":1,"b":2}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "recently unbound connection")
	rr = serve(t, router, http.MethodDelete, last, "")
	assert.Equal(t, http.StatusNoContent, rr.Code, "unbind is idempotent")

	rr = serve(t, router, http.MethodPost, "/api/calculator/"+ids[0].String()+"/add", `{"a":1,"b":2}`)
	assert.Equal(t, http.StatusNotFound, rr.Code, "forgotten connection")
}

func TestCalculatorHandler_ForgetsConnectionsClosedByService(t *testing.T) {
	service := calculator.NewService(testLogger())
	h := NewCalculatorHandler(service)
	router := newCalculatorRouter(h)

	var first uuid.UUID
	for i := 0; i < 5; i++ {
		rr := serve(t, router, http.MethodPost, "/api/calculator/bind", "")
		require.Equal(t, http.StatusCreated, rr.Code)
		if i == 0 {
			first = decode[BindResponse](t, rr).ConnectionID
		}
	}
	service.Close()

	rr := serve(t, router, http.MethodPost, "/api/calculator/bind", "")
	require.Equal(t, http.StatusCreated, rr.Code)

	h.mu.Lock()
	assert.Len(t, h.conns, 1)
	assert.Len(t, h.unbound, 5)
	h.mu.Unlock()

	rr = serve(t, router, http.MethodPost, "/api/calculator/"+first.String()+"/add", `{"a":1,"b":2}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPlaybackEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/playback/pause", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "pause while stopped is rejected")

	rr = env.do(t, http.MethodPost, "/api/playback", "")
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[playback.Snapshot](t, rr)
	assert.Equal(t, playback.StatePlaying, snap.State)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, playback.TextReady, snap.Notification.Text)

	rr = env.do(t, http.MethodPost, "/api/playback/pause", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, playback.StatePaused, decode[playback.Snapshot](t, rr).State)

	rr = env.do(t, http.MethodPost, "/api/playback/STOP", "")
	require.Equal(t, http.StatusOK, rr.Code)
	snap = decode[playback.Snapshot](t, rr)
	assert.Equal(t, playback.StateStopped, snap.State)
	assert.Nil(t, snap.Notification)

	rr = env.do(t, http.MethodGet, "/api/playback", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, playback.StateStopped, decode[playback.Snapshot](t, rr).State)
}

func TestSyncEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	resp := decode[StartSyncResponse](t, rr)
	assert.True(t, resp.Started)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, env.sync.Wait(ctx))

	rr = env.do(t, http.MethodGet, "/api/sync", "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[datasync.Status](t, rr)
	assert.Equal(t, resp.RunID, *status.RunID)
	require.NotNil(t, status.LastResult)
	assert.True(t, status.LastResult.Succeeded())
}

func TestWorkEndpoints_DeferredUntilConnected(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/work", `{"steps":1}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	created := decode[CreateWorkResponse](t, rr)
	assert.Equal(t, task.TaskStatusPending, created.Status)

	work, ok := env.scheduler.Lookup(created.TaskID)
	require.True(t, ok)

	rr = env.do(t, http.MethodGet, "/api/work/"+created.TaskID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, task.TaskStatusPending, decode[WorkResponse](t, rr).Status)

	rr = env.do(t, http.MethodPut, "/api/connectivity", `{"connected":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ConnectivityResponse{Connected: true, Changed: true}, decode[ConnectivityResponse](t, rr))

	select {
	case <-work.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("work did not finish after connectivity returned")
	}

	rr = env.do(t, http.MethodGet, "/api/work/"+created.TaskID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[WorkResponse](t, rr)
	assert.Equal(t, task.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.Succeeded())

	rr = env.do(t, http.MethodDelete, "/api/work/"+created.TaskID.String(), "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestWorkEndpoints_CancelPending(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/work", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	created := decode[CreateWorkResponse](t, rr)

	rr = env.do(t, http.MethodDelete, "/api/work/"+created.TaskID.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/work/"+created.TaskID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[WorkResponse](t, rr)
	assert.Equal(t, task.TaskStatusCancelled, got.Status)
	require.NotNil(t, got.Result)
	assert.False(t, got.Result.Succeeded())
}

func TestWorkEndpoints_CancelReleasedConflicts(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/work", `{"steps":1,"require_network":false}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	created := decode[CreateWorkResponse](t, rr)
	assert.NotEqual(t, task.TaskStatusPending, created.Status, "released work is not reported as pending")

	rr = env.do(t, http.MethodDelete, "/api/work/"+created.TaskID.String(), "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Task is no longer waiting on its conditions", decode[shared.ErrorResponse](t, rr).Error)

	work, ok := env.scheduler.Lookup(created.TaskID)
	require.True(t, ok)
	select {
	case <-work.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for work")
	}
	assert.Equal(t, task.TaskStatusCompleted, work.Status())
}

func TestWorkEndpoints_Errors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/work", `{"steps":1000}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/work", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/work/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	body := decode[shared.ErrorResponse](t, rr)
	assert.Equal(t, "Task not found", body.Error)
	assert.NotEmpty(t, body.TraceID)

	rr = env.do(t, http.MethodDelete, "/api/work/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWorkEndpoints_RecordFromStore(t *testing.T) {
	env := newTestEnv(t)

	// A record left by another process is served from the store
	old := task.NewFuncTask(task.TaskTypeDataSync, nil, nil)
	require.NoError(t, env.store.SaveTask(context.Background(), old))
	require.NoError(t, env.store.UpdateTaskStatus(context.Background(), old.ID(), task.TaskStatusFailed, "interrupted by restart"))

	rr := env.do(t, http.MethodGet, "/api/work/"+old.ID().String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[WorkResponse](t, rr)
	assert.Equal(t, task.TaskStatusFailed, got.Status)
	assert.Equal(t, "interrupted by restart", got.ErrorMessage)
}

func TestConnectivityEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/connectivity", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[ConnectivityResponse](t, rr).Connected)

	rr = env.do(t, http.MethodPut, "/api/connectivity", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/connectivity", `{"connected":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[ConnectivityResponse](t, rr).Changed)
	assert.False(t, env.scheduler.Condition(task.ConditionNetworkConnected))
}
