package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jscience/grid/pkg/client"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"
)

func NewComputeClient() (protocol.ComputeClient, *grpc.ClientConn) {
	remote, conn, err := client.Dial(&configData)
	if err != nil {
		log.Fatal(err)
	}
	return remote, conn
}

func DefaultDeadlineContext() (context.Context, func()) {
	return context.WithDeadline(context.Background(), time.Now().Add(callTimeout))
}

// Writes a value as JSON or YAML. Returns false for other formats.
func printStructured(w io.Writer, format string, v any) bool {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			log.Fatal(err)
		}
		return true

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			log.Fatal(err)
		}
		return true

	case "", "text":
		return false
	}

	fmt.Fprintln(os.Stderr, "unknown output format:", format)
	os.Exit(1)
	return false
}
