// =============================================================================
// SICORE Export - Run Log
// =============================================================================
//
// Every export run leaves a record behind: what was asked for, how many
// records went in and came out, the totals, the file that was written and the
// per-record error log. Records are stored one YAML file per run.
//
// STORAGE LAYOUT:
//   <run_log_dir>/<id>.yaml          the run record
//   <run_log_dir>/<id>.xlsx          optional spreadsheet report (see report.go)
//   <run_log_dir>/<export>.errors.log per-record error log (written by the file manager)
//
// =============================================================================

package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run record not found")

// State is the final state of a run.
type State string

const (
	StateDone    State = "done"
	StateWarning State = "warning"
	StateError   State = "error"
)

// Record is the persisted summary of one export run.
type Record struct {
	ID      string `yaml:"id"`
	Profile string `yaml:"profile,omitempty"`
	Layout  string `yaml:"layout"`
	Kind    string `yaml:"kind"`

	Company      string `yaml:"company"`
	CompanyTaxID string `yaml:"company_tax_id,omitempty"`
	DateFrom     string `yaml:"date_from,omitempty"`
	DateTo       string `yaml:"date_to,omitempty"`

	JournalIDs    []int  `yaml:"journal_ids,omitempty"`
	PartnerIDs    []int  `yaml:"partner_ids,omitempty"`
	PartnerRegime string `yaml:"partner_regime,omitempty"`

	Attempted int `yaml:"attempted"`
	Lines     int `yaml:"lines"`
	Failed    int `yaml:"failed"`

	// Totals are stored as fixed two-decimal strings.
	TotalWithholding string `yaml:"total_withholding"`
	TotalTransaction string `yaml:"total_transaction"`

	FileName    string `yaml:"file_name,omitempty"`
	OutputPath  string `yaml:"output_path,omitempty"`
	ArchivePath string `yaml:"archive_path,omitempty"`

	State    State    `yaml:"state"`
	ErrorLog []string `yaml:"error_log,omitempty"`

	CreatedAt time.Time     `yaml:"created_at"`
	Duration  time.Duration `yaml:"duration"`
}

// NewRecord returns a record with a fresh ID and creation time.
func NewRecord(layout, kind string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		Layout:    layout,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

// ErrorText is the error log as one block of text.
func (r *Record) ErrorText() string {
	return strings.Join(r.ErrorLog, "\n")
}

// =============================================================================
// STORE
// =============================================================================

// Store persists run records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
}

// FileStore keeps one YAML file per record in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(id, ext string) string {
	return filepath.Join(s.Dir, id+ext)
}

// Save writes the record, replacing any earlier version.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("run record has no ID")
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("run record ID %q: %w", rec.ID, err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create run log directory: %w", err)
	}
	if err := os.WriteFile(s.path(rec.ID, ".yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// Get loads one record.
func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.load(s.path(id, ".yaml"))
}

// List returns every record, newest first.
func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	files, err := filepath.Glob(filepath.Join(s.Dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}

	records := make([]*Record, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.load(file)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *FileStore) load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".yaml"))
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse run record %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
