package main

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/jscience/grid/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Serves metrics, status and profiling endpoints on an address.
func serveHttp(sched scheduler.Scheduler, uri string) *http.Server {
	host, err := utils.ParseHttpUrl(uri)
	if err != nil {
		log.Fatal(err)
	}

	log.Info("Listening on http", host)

	r := echo.New()
	r.HideBanner = true
	r.Use(utils.HttpLogger)
	r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	scheduler.NewHttpHandler(sched, r)

	server := &http.Server{Addr: host, Handler: r}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	return server
}
