package scheduler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func NewHttpHandler(scheduler Scheduler, r *echo.Echo) {
	r.GET("/metrics", func(c echo.Context) error {
		stats := scheduler.Statistics()

		metrics := fmt.Sprintln("# TYPE grid_scheduler_tasks_queued gauge")
		metrics += fmt.Sprintln("# HELP grid_scheduler_tasks_queued The total number of tasks currently queued.")
		metrics += fmt.Sprintf("grid_scheduler_tasks_queued %d\n", stats.QueuedTasks)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_tasks_assigned gauge")
		metrics += fmt.Sprintln("# HELP grid_scheduler_tasks_assigned The total number of tasks currently executing.")
		metrics += fmt.Sprintf("grid_scheduler_tasks_assigned %d\n", stats.AssignedTasks)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_results_uncollected gauge")
		metrics += fmt.Sprintln("# HELP grid_scheduler_results_uncollected The total number of results waiting for a client.")
		metrics += fmt.Sprintf("grid_scheduler_results_uncollected %d\n", stats.UncollectedResults)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_results_bytes gauge")
		metrics += fmt.Sprintln("# HELP grid_scheduler_results_bytes The total size of stored results.")
		metrics += fmt.Sprintf("grid_scheduler_results_bytes %d\n", stats.ResultBytes)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_tasks_failed_total counter")
		metrics += fmt.Sprintln("# HELP grid_scheduler_tasks_failed_total The total number of failed tasks.")
		metrics += fmt.Sprintf("grid_scheduler_tasks_failed_total %d\n", stats.FailedTasks)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_tasks_completed_total counter")
		metrics += fmt.Sprintln("# HELP grid_scheduler_tasks_completed_total The total number of successful tasks.")
		metrics += fmt.Sprintf("grid_scheduler_tasks_completed_total %d\n", stats.CompletedTasks)

		metrics += fmt.Sprintln("# TYPE grid_scheduler_workers gauge")
		metrics += fmt.Sprintln("# HELP grid_scheduler_workers The total number of workers currently registered.")
		metrics += fmt.Sprintf("grid_scheduler_workers %d\n", stats.Workers)

		return c.String(http.StatusOK, metrics)
	})

	r.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, scheduler.Statistics().ServerStatus())
	})

	r.GET("/workers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, scheduler.ListWorkers())
	})
}
