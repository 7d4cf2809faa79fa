// Package resultstash stores the output of completed tasks until it is
// collected by a client.
package resultstash

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/afero"
)

// Returned by Put for a result that could never fit in the stash.
var ErrTooLarge = errors.New("result too large")

type StashConfig interface {
	// Get the maximum allowed size of the stash.
	// If the stash is larger than this, the least recently used results are removed.
	// If this is 0, the stash is unbounded.
	MaxSize() int64
}

type ResultStash interface {
	// Store the output of a task, replacing any previous output.
	// Returns ErrTooLarge if the output alone is larger than the stash limit.
	Put(id string, data []byte) error

	// Read the output of a task.
	// Returns utils.ErrNotFound if the result was never stored or has been evicted.
	Get(id string) ([]byte, error)

	// Remove the output of a task. Removing a missing result is not an error.
	Remove(id string) error

	// Total size of stored results.
	Size() int64
}

type resultFile struct {
	fs   utils.Fs
	path string
	size int64
}

func (f *resultFile) Key() string {
	return f.path
}

func (f *resultFile) Size() int64 {
	return f.size
}

func (f *resultFile) Unlink() error {
	return f.fs.Remove(f.path)
}

type resultStash struct {
	sync.Mutex
	config StashConfig
	fs     utils.Fs
	lru    *utils.LRU[*resultFile]
}

// Create a new result stash on top of the filesystem.
// Results are keyed by task id, which is arbitrary client input, so file
// names are name-based UUIDs of the id.
func NewResultStash(config StashConfig, fs utils.Fs) ResultStash {
	stash := &resultStash{
		config: config,
		fs:     fs,
	}

	stash.lru = utils.NewLRU[*resultFile](config.MaxSize(), func(item *resultFile) bool {
		log.Debug("del - result - path:", item.path)
		item.Unlink()
		return true
	})

	// Results from a previous run have no owner anymore
	purged := 0
	afero.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil || path == "." || info.IsDir() {
			return nil
		}
		if fs.Remove(path) == nil {
			purged++
		}
		return nil
	})

	log.Infof("Purged %d stale result files. Stash limit: %s",
		purged, utils.HumanByteSize(config.MaxSize()))

	return stash
}

// Namespace of result file names.
var resultNamespace = uuid.MustParse("5a0c4bb6-3f43-4d8e-9a55-2b7f2f0e6c19")

func resultPath(id string) string {
	return uuid.NewSHA1(resultNamespace, []byte(id)).String()
}

func (s *resultStash) Put(id string, data []byte) error {
	size := int64(len(data))
	if limit := s.config.MaxSize(); limit > 0 && size > limit {
		return fmt.Errorf("%w: result %s of %s exceeds the stash limit %s",
			ErrTooLarge, id, utils.HumanByteSize(size), utils.HumanByteSize(limit))
	}

	path := resultPath(id)

	s.Lock()
	defer s.Unlock()

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("store result %s: %w", id, err)
	}

	log.Debug("add - result - id:", id)

	s.lru.Add(&resultFile{fs: s.fs, path: path, size: size})
	return nil
}

func (s *resultStash) Get(id string) ([]byte, error) {
	path := resultPath(id)

	s.Lock()
	defer s.Unlock()

	if _, ok := s.lru.Get(path); !ok {
		return nil, fmt.Errorf("%w: result %s", utils.ErrNotFound, id)
	}

	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		s.lru.Remove(path)
		return nil, fmt.Errorf("%w: result %s", utils.ErrNotFound, id)
	}
	return data, err
}

func (s *resultStash) Remove(id string) error {
	path := resultPath(id)

	s.Lock()
	defer s.Unlock()

	s.lru.Remove(path)
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *resultStash) Size() int64 {
	return s.lru.Size()
}
