package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDashboardConfig struct {
	mock.Mock
}

// The URI of the Dashboard web service
func (m *MockDashboardConfig) GetDashboardUri() string {
	return m.Called().String(0)
}

func TestDashboard(t *testing.T) {
	ch := make(chan map[string]string, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)
		event := map[string]string{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		ch <- event
	}))
	defer ts.Close()

	c := &MockDashboardConfig{}
	c.On("GetDashboardUri").Return(ts.URL)

	d := NewDashboardTelemetryHook(c)
	defer d.Close()

	task := scheduler.TaskEvent{
		TaskId:   "t1",
		Priority: protocol.Priority_HIGH,
		Status:   protocol.TaskStatus_TASK_QUEUED,
	}

	d.TaskSubmitted(task)
	event := <-ch
	assert.Equal(t, "queued", event["Event"])
	assert.Equal(t, "t1", event["TaskId"])
	assert.Equal(t, "HIGH", event["Priority"])
	assert.Equal(t, "scheduler", event["Role"])
	assert.Empty(t, event["WorkerId"])

	task.WorkerId = "w1"
	d.TaskStatusChanged(task, protocol.TaskStatus_TASK_ASSIGNED)
	event = <-ch
	assert.Equal(t, "started", event["Event"])
	assert.Equal(t, "w1", event["WorkerId"])

	task.ErrorMessage = "boom"
	d.TaskStatusChanged(task, protocol.TaskStatus_TASK_FAILED)
	event = <-ch
	assert.Equal(t, "failed", event["Event"])
	assert.Equal(t, "boom", event["Error"])

	d.TaskStatusChanged(task, protocol.TaskStatus_TASK_COMPLETED)
	event = <-ch
	assert.Equal(t, "finished", event["Event"])
}
