package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// Store manages run state on disk. Each run lives in its own numbered
// directory under baseDir, with a counter file guaranteeing monotonic
// run numbers even after old runs are deleted.
type Store struct {
	baseDir string // defaults to ~/.warship/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.warship/runs, creating the directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".warship", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// runDir returns the directory path for a given run number.
func (s *Store) runDir(number int) string {
	return filepath.Join(s.baseDir, strconv.Itoa(number))
}

// runPath returns the path to the run.json file for a run.
func (s *Store) runPath(number int) string {
	return filepath.Join(s.runDir(number), "run.json")
}

// counterPath returns the path to the monotonic counter file.
func (s *Store) counterPath() string {
	return filepath.Join(s.baseDir, "counter")
}

// NextNumber allocates the next run number. It takes the max of the counter
// file and any existing run directories, so numbers stay strictly increasing
// even if the counter file is lost.
func (s *Store) NextNumber() (int, error) {
	last := 0
	if data, err := os.ReadFile(s.counterPath()); err == nil {
		if n, err := strconv.Atoi(string(data)); err == nil && n > last {
			last = n
		}
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(entry.Name()); err == nil && n > last {
			last = n
		}
	}

	next := last + 1
	if err := writeAtomic(s.counterPath(), []byte(strconv.Itoa(next))); err != nil {
		return 0, fmt.Errorf("write counter: %w", err)
	}
	return next, nil
}

// Create initialises a new run on disk with the version derived from its number.
func (s *Store) Create(number int, commit string) (*Run, error) {
	dir := s.runDir(number)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("run %d already exists", number)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	run := &Run{
		Number:    number,
		Version:   Version(number),
		Commit:    commit,
		Status:    StatusPending,
		Steps:     []StepResult{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := writeJSON(s.runPath(number), run); err != nil {
		return nil, fmt.Errorf("write run.json: %w", err)
	}
	return run, nil
}

// Get reads the state for a run.
func (s *Store) Get(number int) (*Run, error) {
	var run Run
	if err := readJSON(s.runPath(number), &run); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %d not found", number)
		}
		return nil, err
	}
	return &run, nil
}

// Update performs a read-modify-write of the run state.
func (s *Store) Update(number int, fn func(*Run)) error {
	run, err := s.Get(number)
	if err != nil {
		return err
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return writeJSON(s.runPath(number), run)
}

// AppendStep records a step result on the run.
func (s *Store) AppendStep(number int, step StepResult) error {
	return s.Update(number, func(run *Run) {
		run.Steps = append(run.Steps, step)
	})
}

// List returns all runs, newest first, optionally filtered by status.
// Pass "" for statusFilter to return all runs.
func (s *Store) List(statusFilter string) ([]Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var runs []Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		number, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // skip non-numeric directories
		}
		run, err := s.Get(number)
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || run.Status == statusFilter {
			runs = append(runs, *run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Number > runs[j].Number
	})
	return runs, nil
}

// Delete removes all data for a run. The counter is untouched, so the
// deleted number is never reused.
func (s *Store) Delete(number int) error {
	dir := s.runDir(number)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("run %d not found", number)
	}
	return os.RemoveAll(dir)
}

// writeAtomic writes data through a temp file in the target directory and
// renames it into place, so a reader never sees a half-written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return fmt.Errorf("write %s: %w", path, werr)
		}
		return fmt.Errorf("write %s: %w", path, cerr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
