// Package protocol defines the messages exchanged between clients, workers
// and the scheduler. Messages are CBOR encoded on the wire; integer keys keep
// the encoding compact and stable when fields are renamed.
package protocol

type Empty struct{}

type ServerStatus struct {
	ActiveWorkers  int32 `cbor:"1,keyasint,omitempty" json:"activeWorkers" yaml:"activeWorkers"`
	QueuedTasks    int32 `cbor:"2,keyasint,omitempty" json:"queuedTasks" yaml:"queuedTasks"`
	AssignedTasks  int32 `cbor:"3,keyasint,omitempty" json:"assignedTasks" yaml:"assignedTasks"`
	CompletedTasks int64 `cbor:"4,keyasint,omitempty" json:"completedTasks" yaml:"completedTasks"`
	FailedTasks    int64 `cbor:"5,keyasint,omitempty" json:"failedTasks" yaml:"failedTasks"`
}

// A unit of work submitted by a client, or handed to a worker.
// An empty task id in a response to RequestTask means no work is available.
type TaskRequest struct {
	TaskId    string   `cbor:"1,keyasint,omitempty" json:"taskId"`
	Payload   []byte   `cbor:"2,keyasint,omitempty" json:"payload,omitempty"`
	Priority  Priority `cbor:"3,keyasint,omitempty" json:"priority"`
	Timestamp int64    `cbor:"4,keyasint,omitempty" json:"timestamp"`
}

func (r *TaskRequest) GetTaskId() string {
	if r == nil {
		return ""
	}
	return r.TaskId
}

// Returns true if the request carries a task.
func (r *TaskRequest) HasTask() bool {
	return r.GetTaskId() != ""
}

type TaskResponse struct {
	TaskId string       `cbor:"1,keyasint,omitempty" json:"taskId"`
	Status SubmitStatus `cbor:"2,keyasint,omitempty" json:"status"`
	Reason string       `cbor:"3,keyasint,omitempty" json:"reason,omitempty"`
}

type WorkerRegistration struct {
	Hostname    string `cbor:"1,keyasint,omitempty" json:"hostname"`
	Cores       int32  `cbor:"2,keyasint,omitempty" json:"cores"`
	MemoryBytes int64  `cbor:"3,keyasint,omitempty" json:"memoryBytes"`
	MachineId   string `cbor:"4,keyasint,omitempty" json:"machineId,omitempty"`
}

type WorkerRegistrationResponse struct {
	WorkerId   string `cbor:"1,keyasint,omitempty" json:"workerId"`
	Authorized bool   `cbor:"2,keyasint,omitempty" json:"authorized"`
	Reason     string `cbor:"3,keyasint,omitempty" json:"reason,omitempty"`
}

type WorkerIdentifier struct {
	WorkerId string `cbor:"1,keyasint,omitempty" json:"workerId"`
}

func (w *WorkerIdentifier) GetWorkerId() string {
	if w == nil {
		return ""
	}
	return w.WorkerId
}

// Outcome of a task execution, or a snapshot of a task that is still pending.
// Data is present iff the status is COMPLETED, the error message iff FAILED.
type TaskResult struct {
	TaskId       string     `cbor:"1,keyasint,omitempty" json:"taskId"`
	Status       TaskStatus `cbor:"2,keyasint,omitempty" json:"status"`
	Data         []byte     `cbor:"3,keyasint,omitempty" json:"data,omitempty"`
	ErrorMessage string     `cbor:"4,keyasint,omitempty" json:"errorMessage,omitempty"`
	WorkerId     string     `cbor:"5,keyasint,omitempty" json:"workerId,omitempty"`
}

func (r *TaskResult) GetStatus() TaskStatus {
	if r == nil {
		return TaskStatus_TASK_UNKNOWN
	}
	return r.Status
}

type ResultAck struct {
	Accepted bool `cbor:"1,keyasint,omitempty" json:"accepted"`
}

type TaskIdentifier struct {
	TaskId string `cbor:"1,keyasint,omitempty" json:"taskId"`
	// Longest time the server may wait for the task to resolve.
	// Zero means the server default.
	TimeoutMillis int64 `cbor:"2,keyasint,omitempty" json:"timeoutMillis,omitempty"`
}

type WorkerInfo struct {
	WorkerId     string `cbor:"1,keyasint,omitempty" json:"workerId" yaml:"workerId"`
	Hostname     string `cbor:"2,keyasint,omitempty" json:"hostname" yaml:"hostname"`
	Cores        int32  `cbor:"3,keyasint,omitempty" json:"cores" yaml:"cores"`
	MemoryBytes  int64  `cbor:"4,keyasint,omitempty" json:"memoryBytes" yaml:"memoryBytes"`
	MachineId    string `cbor:"5,keyasint,omitempty" json:"machineId,omitempty" yaml:"machineId,omitempty"`
	Principal    string `cbor:"6,keyasint,omitempty" json:"principal,omitempty" yaml:"principal,omitempty"`
	RegisteredAt int64  `cbor:"7,keyasint,omitempty" json:"registeredAt" yaml:"registeredAt"`
	LastSeen     int64  `cbor:"8,keyasint,omitempty" json:"lastSeen" yaml:"lastSeen"`
	CurrentTask  string `cbor:"9,keyasint,omitempty" json:"currentTask,omitempty" yaml:"currentTask,omitempty"`
}

type WorkerList struct {
	Workers []*WorkerInfo `cbor:"1,keyasint,omitempty" json:"workers" yaml:"workers"`
}
