package scheduler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jscience/grid/pkg/protocol"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpHandler(t *testing.T) {
	scheduler := NewPriorityScheduler(Config{}, newTestStash())
	_, err := scheduler.SubmitTask(&protocol.TaskRequest{TaskId: "t1"})
	require.NoError(t, err)
	_, err = scheduler.RegisterWorker("test", &protocol.WorkerRegistration{Hostname: "node1"})
	require.NoError(t, err)

	r := echo.New()
	NewHttpHandler(scheduler, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grid_scheduler_tasks_queued 1\n")
	assert.Contains(t, rec.Body.String(), "grid_scheduler_workers 1\n")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	status := protocol.ServerStatus{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, int32(1), status.QueuedTasks)
	assert.Equal(t, int32(1), status.ActiveWorkers)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var workers []protocol.WorkerInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 1)
	assert.Equal(t, "node1", workers[0].Hostname)
}
