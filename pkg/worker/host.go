package worker

import (
	"os"
	"runtime"

	"github.com/denisbrodbeck/machineid"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
)

// Application id mixed into the machine id so that the raw id is not disclosed.
const machineIdApp = "jscience-grid"

// Describes this host for registration. Cores is the number of threads the
// worker may use, or all CPUs if threads is zero.
func DiscoverHost(hostname string, threads int) *protocol.WorkerRegistration {
	if hostname == "" {
		name, err := os.Hostname()
		if err != nil {
			log.Debug("Failed to read hostname:", err)
			name = "unknown"
		}
		hostname = name
	}

	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	id, err := machineid.ProtectedID(machineIdApp)
	if err != nil {
		log.Debug("Failed to read machine id:", err)
	}

	return &protocol.WorkerRegistration{
		Hostname:    hostname,
		Cores:       int32(threads),
		MemoryBytes: totalMemory(),
		MachineId:   id,
	}
}
