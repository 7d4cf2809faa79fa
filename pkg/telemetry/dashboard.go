// Package telemetry forwards scheduler task events to an external dashboard.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/labstack/echo/v4"
)

type taskEvent struct {
	Event    string
	TaskId   string
	Priority string
	WorkerId string `json:",omitempty"`
	Error    string `json:",omitempty"`
	Role     string
	Time     time.Time
}

type DashboardConfig interface {
	GetDashboardUri() string
}

type dashboardHooks struct {
	client http.Client
	config DashboardConfig
	ch     chan *taskEvent
	wg     sync.WaitGroup
}

func NewDashboardTelemetryHook(config DashboardConfig) *dashboardHooks {
	hooks := &dashboardHooks{
		client: http.Client{Timeout: 10 * time.Second},
		config: config,
		ch:     make(chan *taskEvent, 1000),
	}
	hooks.wg.Add(1)
	go hooks.run()
	return hooks
}

func (d *dashboardHooks) formatEvent(task scheduler.TaskEvent, status protocol.TaskStatus) *taskEvent {
	event := &taskEvent{
		TaskId:   task.TaskId,
		Priority: task.Priority.String(),
		WorkerId: task.WorkerId,
		Role:     "scheduler",
		Time:     time.Now(),
	}

	switch status {
	case protocol.TaskStatus_TASK_FAILED:
		event.Event = "failed"
		event.Error = task.ErrorMessage
	case protocol.TaskStatus_TASK_COMPLETED:
		event.Event = "finished"
	case protocol.TaskStatus_TASK_QUEUED:
		event.Event = "queued"
		event.WorkerId = ""
	case protocol.TaskStatus_TASK_ASSIGNED:
		event.Event = "started"
	}

	return event
}

func (d *dashboardHooks) formatUri() string {
	return fmt.Sprintf("%s/api/v1/tasks", d.config.GetDashboardUri())
}

func (d *dashboardHooks) postEvent(event *taskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	response, err := d.client.Post(d.formatUri(), echo.MIMEApplicationJSON, bytes.NewReader(data))
	if err == nil {
		response.Body.Close()
	} else {
		log.Trace("failed to post telemetry:", err)
	}
	return err
}

func (d *dashboardHooks) TaskSubmitted(task scheduler.TaskEvent) {
	d.TaskStatusChanged(task, protocol.TaskStatus_TASK_QUEUED)
}

func (d *dashboardHooks) TaskStatusChanged(task scheduler.TaskEvent, status protocol.TaskStatus) {
	event := d.formatEvent(task, status)
	select {
	case d.ch <- event:
	default:
		log.Debug("failed sending telemetry to dashboard, channel full")
	}
}

// Stop accepting events and wait for queued events to be posted.
func (d *dashboardHooks) Close() {
	close(d.ch)
	d.wg.Wait()
}

func (d *dashboardHooks) run() {
	defer d.wg.Done()
	for event := range d.ch {
		d.postEvent(event)
	}
}
