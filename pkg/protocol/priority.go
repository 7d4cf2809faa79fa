package protocol

import (
	"fmt"
	"strings"
)

// Scheduling priority of a task. Higher values are dequeued first.
type Priority int32

const (
	Priority_LOW      Priority = 0
	Priority_NORMAL   Priority = 1
	Priority_HIGH     Priority = 2
	Priority_CRITICAL Priority = 3
)

var priorityNames = []string{"LOW", "NORMAL", "HIGH", "CRITICAL"}

func (p Priority) String() string {
	if p.IsValid() {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int32(p))
}

// Returns true if the priority is one of the defined levels.
func (p Priority) IsValid() bool {
	return p >= Priority_LOW && p <= Priority_CRITICAL
}

// Parses a priority name, case insensitive.
func ParsePriority(name string) (Priority, error) {
	for i, n := range priorityNames {
		if strings.EqualFold(n, name) {
			return Priority(i), nil
		}
	}
	return Priority_NORMAL, fmt.Errorf("unknown priority: %s", name)
}
