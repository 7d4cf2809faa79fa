// Package dispatch maps task payloads to the handlers that execute them.
//
// Two payload encodings share the transport. Legacy records start with a
// short type tag followed by fixed-layout big-endian fields. Generic payloads
// are a single CBOR data item whose tag number selects the handler. The
// legacy form is tried first.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/utils"
)

// Executes a legacy record. The reader is positioned after the type tag.
type LegacyHandler func(ctx context.Context, r *LegacyReader) ([]byte, error)

// Executes the content of a generic payload.
type GenericHandler func(ctx context.Context, content cbor.RawMessage) ([]byte, error)

// A payload bound to its handler.
type Task struct {
	// Name of the task type, the legacy tag or "cbor:<tag number>"
	Kind string

	run func(ctx context.Context) ([]byte, error)
}

// Executes the task. Panics in the handler are returned as errors.
func (t *Task) Run(ctx context.Context) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("handler panic - kind: %s\n%s", t.Kind, debug.Stack())
			data, err = nil, fmt.Errorf("%s handler panicked: %v", t.Kind, r)
		}
	}()

	return t.run(ctx)
}

type Dispatcher struct {
	mu      sync.RWMutex
	legacy  map[string]LegacyHandler
	generic map[uint64]GenericHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		legacy:  map[string]LegacyHandler{},
		generic: map[uint64]GenericHandler{},
	}
}

func (d *Dispatcher) RegisterLegacy(tag string, handler LegacyHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.legacy[tag] = handler
}

func (d *Dispatcher) RegisterGeneric(tag uint64, handler GenericHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generic[tag] = handler
}

// Returns the task types known to the dispatcher.
func (d *Dispatcher) Kinds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]string, 0, len(d.legacy)+len(d.generic))
	for tag := range d.legacy {
		kinds = append(kinds, tag)
	}
	for tag := range d.generic {
		kinds = append(kinds, fmt.Sprintf("cbor:%d", tag))
	}
	return kinds
}

// Binds a payload to its handler.
// Returns utils.ErrUnknownType if neither encoding yields a registered type.
func (d *Dispatcher) Resolve(payload []byte) (*Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tag, rest, legacyErr := ReadTag(payload)
	if legacyErr == nil {
		if handler, ok := d.legacy[tag]; ok {
			return &Task{
				Kind: tag,
				run: func(ctx context.Context) ([]byte, error) {
					return handler(ctx, NewLegacyReader(rest))
				},
			}, nil
		}
		legacyErr = fmt.Errorf("no handler for tag %q", tag)
	}

	number, content, genericErr := DecodeGeneric(payload)
	if genericErr == nil {
		if handler, ok := d.generic[number]; ok {
			return &Task{
				Kind: fmt.Sprintf("cbor:%d", number),
				run: func(ctx context.Context) ([]byte, error) {
					return handler(ctx, content)
				},
			}, nil
		}
		genericErr = fmt.Errorf("no handler for cbor tag %d", number)
	}

	return nil, fmt.Errorf("%w: legacy: %v; generic: %v", utils.ErrUnknownType, legacyErr, genericErr)
}

// Resolves and runs a payload.
func (d *Dispatcher) Execute(ctx context.Context, payload []byte) ([]byte, error) {
	task, err := d.Resolve(payload)
	if err != nil {
		return nil, err
	}
	return task.Run(ctx)
}
