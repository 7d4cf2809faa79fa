package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

// A registered worker.
type WorkerRecord struct {
	Id           string
	Hostname     string
	Cores        int32
	MemoryBytes  int64
	MachineId    string
	Principal    string
	RegisteredAt time.Time

	lastSeen    time.Time
	currentTask string
}

func (w *WorkerRecord) info() *protocol.WorkerInfo {
	return &protocol.WorkerInfo{
		WorkerId:     w.Id,
		Hostname:     w.Hostname,
		Cores:        w.Cores,
		MemoryBytes:  w.MemoryBytes,
		MachineId:    w.MachineId,
		Principal:    w.Principal,
		RegisteredAt: w.RegisteredAt.UnixMilli(),
		LastSeen:     w.lastSeen.UnixMilli(),
		CurrentTask:  w.currentTask,
	}
}

// Tracks registered workers.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[string]*WorkerRecord
}

func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{
		workers: map[string]*WorkerRecord{},
	}
}

// Creates a record with a fresh server-assigned identifier.
func (r *WorkerRegistry) Register(principal string, registration *protocol.WorkerRegistration, now time.Time) *WorkerRecord {
	record := &WorkerRecord{
		Id:           uuid.NewString(),
		Hostname:     registration.Hostname,
		Cores:        registration.Cores,
		MemoryBytes:  registration.MemoryBytes,
		MachineId:    registration.MachineId,
		Principal:    principal,
		RegisteredAt: now,
		lastSeen:     now,
	}

	r.mu.Lock()
	r.workers[record.Id] = record
	r.mu.Unlock()

	log.Infof("new - worker - id: %s, hostname: %s, cores: %d, memory: %s",
		record.Id, record.Hostname, record.Cores, utils.HumanByteSize(record.MemoryBytes))

	return record
}

func (r *WorkerRegistry) Lookup(workerId string) (*WorkerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.workers[workerId]
	if !ok {
		return nil, fmt.Errorf("%w: worker %s", utils.ErrNotFound, workerId)
	}
	return record, nil
}

// Refreshes the liveness of a worker.
func (r *WorkerRegistry) Touch(workerId string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.workers[workerId]
	if !ok {
		return fmt.Errorf("%w: worker %s", utils.ErrNotFound, workerId)
	}
	record.lastSeen = now
	return nil
}

// Records the task currently executed by a worker.
func (r *WorkerRegistry) SetCurrentTask(workerId, taskId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record, ok := r.workers[workerId]; ok {
		record.currentTask = taskId
	}
}

func (r *WorkerRegistry) Remove(workerId string) (*WorkerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.workers[workerId]
	if ok {
		delete(r.workers, workerId)
	}
	return record, ok
}

// Removes and returns workers not seen since the deadline.
func (r *WorkerRegistry) RemoveStale(deadline time.Time) []*WorkerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*WorkerRecord
	for id, record := range r.workers {
		if record.lastSeen.Before(deadline) {
			stale = append(stale, record)
			delete(r.workers, id)
		}
	}
	return stale
}

func (r *WorkerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// Returns all workers ordered by registration time.
func (r *WorkerRegistry) List() []*protocol.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*protocol.WorkerInfo, 0, len(r.workers))
	for _, record := range r.workers {
		list = append(list, record.info())
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].RegisteredAt != list[j].RegisteredAt {
			return list[i].RegisteredAt < list[j].RegisteredAt
		}
		return list[i].WorkerId < list[j].WorkerId
	})
	return list
}
