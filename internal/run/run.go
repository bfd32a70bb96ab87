package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/xdrscope-cli/internal/utils"
)

const manifestFileName = "run.json"

// Run represents one analysis run persisted on disk as a directory holding
// run.json and the artifacts it lists.
type Run struct {
	ID        string               `json:"id"`
	Source    string               `json:"source"`
	Note      string               `json:"note,omitempty"`
	Rows      int                  `json:"rows"`
	Users     int                  `json:"users"`
	Artifacts map[string]*Artifact `json:"artifacts"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`

	// Not serialized: on-disk location of the run directory
	rootDir string `json:"-"`
}

// New constructs an in-memory run under runsDir. Call Save() to persist.
func New(runsDir, source string) *Run {
	id := uuid.NewString()
	now := time.Now().UTC()
	return &Run{
		ID:        id,
		Source:    source,
		Artifacts: make(map[string]*Artifact),
		CreatedAt: now,
		UpdatedAt: now,
		rootDir:   filepath.Join(runsDir, id),
	}
}

// Load reads run.json from the provided directory.
func Load(dir string) (*Run, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	if r.Artifacts == nil {
		r.Artifacts = make(map[string]*Artifact)
	}
	r.rootDir = dir
	return &r, nil
}

// Dir returns the on-disk run directory.
func (r *Run) Dir() string { return r.rootDir }

// Save writes run.json using atomic write.
func (r *Run) Save() error {
	if r.rootDir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	r.UpdatedAt = time.Now().UTC()
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(r.rootDir, manifestFileName), data)
}

// ArtifactPath returns the absolute path of an artifact file name.
func (r *Run) ArtifactPath(name string) string {
	return filepath.Join(r.rootDir, name)
}

// AddArtifact writes an artifact through write and records it in the
// manifest. The manifest itself is not saved. An artifact of the same name
// is replaced.
func (r *Run) AddArtifact(name, kind, title string, write func(io.Writer) error) (*Artifact, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == manifestFileName {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	path := r.ArtifactPath(name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	werr := write(f)
	cerr := f.Close()
	if werr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", name, werr)
	}
	if cerr != nil {
		return nil, fmt.Errorf("close %s: %w", name, cerr)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	id := uuid.NewString()
	for key, a := range r.Artifacts {
		if a.Name == name {
			id = key
		}
	}
	a := &Artifact{ID: id, Name: name, Kind: kind, Title: title, Bytes: info.Size(), CreatedAt: time.Now().UTC()}
	if r.Artifacts == nil {
		r.Artifacts = make(map[string]*Artifact)
	}
	r.Artifacts[id] = a
	r.UpdatedAt = a.CreatedAt
	return a, nil
}

// Sorted returns the artifacts ordered by name.
func (r *Run) Sorted() []*Artifact {
	out := make([]*Artifact, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List loads every run under runsDir, newest first. Directories without a
// manifest are skipped; a missing runsDir yields no runs.
func List(runsDir string) ([]*Run, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var runs []*Run
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(runsDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, manifestFileName)); err != nil {
			continue
		}
		r, err := Load(dir)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// Find resolves a run by full ID or unique ID prefix.
func Find(runsDir, id string) (*Run, error) {
	if id == "" {
		return nil, errors.New("run id is empty")
	}
	runs, err := List(runsDir)
	if err != nil {
		return nil, err
	}
	var match *Run
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found in %s", id, runsDir)
	}
	return match, nil
}
