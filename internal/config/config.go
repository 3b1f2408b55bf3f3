// =============================================================================
// SICORE Export - Configuration Module
// =============================================================================
//
// This module loads the two kinds of configuration the exporter reads:
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, output and processing settings
//   2. Run Profiles (profiles/*.yaml): one export run each - company, period,
//      filters and the advanced code overrides written into every record
//
// Every value has a documented default. Command-line flags override the file.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// OutputDir is where generated TXT files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives a copy of every successfully written export.
	// Default: "./output_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveRetentionDays removes archived exports older than this.
	// Zero keeps everything.
	// Default: 0
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// ArchiveTimestampSubdirs files archived exports under YYYY/MM/DD of the
	// run date.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// RunLogDir is where run records (and XLSX run reports) are stored.
	// Default: "./runs"
	RunLogDir string `yaml:"run_log_dir"`

	// LayoutsDir holds optional XLSX layout templates that replace the
	// built-in layouts of the same kind.
	// Default: "./layouts"
	LayoutsDir string `yaml:"layouts_dir"`

	// ProfilesDir holds run profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile mirrors log output to a file. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FilePrefix starts every export file name: <prefix>_<layout>_<YYYYMMDD>.txt
	// Default: "sicore"
	FilePrefix string `yaml:"file_prefix"`

	// LineEnding separates records: "lf" or "crlf".
	// Default: "lf"
	LineEnding string `yaml:"line_ending"`

	// TrailingNewline terminates the last record too.
	// Default: false
	TrailingNewline bool `yaml:"trailing_newline"`

	// WriteReport also writes an XLSX summary next to each run record.
	// Default: false
	WriteReport bool `yaml:"write_report"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds how many records are extracted in parallel.
	// Output order never depends on it. Set to 1 for sequential processing.
	// Default: 1
	MaxConcurrency int `yaml:"max_concurrency"`
}

// =============================================================================
// RUN CONFIGURATION STRUCTURE
// =============================================================================

// RunConfig describes one export run.
type RunConfig struct {
	// Name identifies the profile. Defaults to the file name.
	Name string `yaml:"name"`

	// Layout is retention, perception or fuel.
	Layout string `yaml:"layout"`

	// Ledger is the path to the YAML ledger book to export from.
	Ledger string `yaml:"ledger"`

	// CompanyID restricts the run to one company. Zero means the ledger's company.
	CompanyID int `yaml:"company_id"`

	// DateFrom and DateTo bound the period (YYYY-MM-DD, inclusive).
	DateFrom string `yaml:"date_from"`
	DateTo   string `yaml:"date_to"`

	// JournalIDs and PartnerIDs optionally restrict the records.
	JournalIDs []int `yaml:"journal_ids"`
	PartnerIDs []int `yaml:"partner_ids"`

	// PartnerRegime is all, general or simplified (retention and perception only).
	// Default: "all"
	PartnerRegime string `yaml:"partner_regime"`

	// Codes are the advanced settings copied into every record.
	Codes Codes `yaml:"codes"`
}

// Codes holds the constant codes written into records. Several of them are
// pending confirmation with the tax authority, so they live here rather than
// in the layouts.
type Codes struct {
	// OperationCode. Default: "1"
	OperationCode string `yaml:"operation_code"`

	// ConditionCode. Default: "01"
	ConditionCode string `yaml:"condition_code"`

	// SuspendedSubjects flags withholdings on suspended subjects ("0" or "1"). Default: "0"
	SuspendedSubjects string `yaml:"suspended_subjects"`

	// ExclusionPercentage. Default: "000000"
	ExclusionPercentage string `yaml:"exclusion_percentage"`

	// OriginalCertificate number. Default: "00000000000000"
	OriginalCertificate string `yaml:"original_certificate"`

	// BulletinDate placeholder for perceptions. Default: "0000000000"
	BulletinDate string `yaml:"bulletin_date"`

	// Fuel record constants. Defaults: "C", "5", "001", "3"
	FuelRecordCode   string `yaml:"fuel_record_code"`
	FuelTaxCode      string `yaml:"fuel_tax_code"`
	FuelRegimeCode   string `yaml:"fuel_regime_code"`
	FuelConstantCode string `yaml:"fuel_constant_code"`

	// DocumentTypes maps an entry type to a document code when the entry
	// carries none. Missing keys fall back to DefaultDocumentType.
	DocumentTypes map[string]string `yaml:"document_types"`

	// DefaultDocumentType. Default: "06"
	DefaultDocumentType string `yaml:"default_document_type"`
}

// =============================================================================
// MAIN CONFIGURATION LOADING
// =============================================================================

// LoadMainConfig loads the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
//
// A missing file is not an error: the defaults are returned instead.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns a MainConfig with every default applied.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ArchiveDir == "" {
		config.ArchiveDir = "./output_archive"
	}
	if config.RunLogDir == "" {
		config.RunLogDir = "./runs"
	}
	if config.LayoutsDir == "" {
		config.LayoutsDir = "./layouts"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.FilePrefix == "" {
		config.FilePrefix = "sicore"
	}
	if config.LineEnding == "" {
		config.LineEnding = "lf"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
}

// validateMainConfig checks enumerated settings. Directories are created by
// the commands that write to them.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", config.LogLevel)
	}

	switch strings.ToLower(config.LineEnding) {
	case "lf", "crlf":
	default:
		return fmt.Errorf("line_ending %q must be lf or crlf", config.LineEnding)
	}

	if config.ArchiveRetentionDays < 0 {
		return fmt.Errorf("archive_retention_days cannot be negative")
	}
	return nil
}

// LineSeparator returns "\n" or "\r\n".
func (c *MainConfig) LineSeparator() string {
	if strings.EqualFold(c.LineEnding, "crlf") {
		return "\r\n"
	}
	return "\n"
}

// =============================================================================
// RUN CONFIGURATION LOADING
// =============================================================================

// DefaultRunConfig returns a run with every default code applied.
func DefaultRunConfig() *RunConfig {
	run := &RunConfig{}
	ApplyRunDefaults(run)
	return run
}

// LoadRunConfig loads a single run profile.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var run RunConfig
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	if run.Name == "" {
		run.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ApplyRunDefaults(&run)
	return &run, nil
}

// LoadRunProfiles loads every run profile in a directory, keyed by name.
func LoadRunProfiles(dir string) (map[string]*RunConfig, error) {
	profiles := make(map[string]*RunConfig)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		run, err := LoadRunConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if _, dup := profiles[run.Name]; dup {
			return nil, fmt.Errorf("duplicate profile name %q in %s", run.Name, file)
		}
		profiles[run.Name] = run
	}

	return profiles, nil
}

// ApplyRunDefaults fills every unset code with its documented default.
func ApplyRunDefaults(run *RunConfig) {
	if run.PartnerRegime == "" {
		run.PartnerRegime = "all"
	}

	c := &run.Codes
	if c.OperationCode == "" {
		c.OperationCode = "1"
	}
	if c.ConditionCode == "" {
		c.ConditionCode = "01"
	}
	if c.SuspendedSubjects == "" {
		c.SuspendedSubjects = "0"
	}
	if c.ExclusionPercentage == "" {
		c.ExclusionPercentage = "000000"
	}
	if c.OriginalCertificate == "" {
		c.OriginalCertificate = "00000000000000"
	}
	if c.BulletinDate == "" {
		c.BulletinDate = "0000000000"
	}
	if c.FuelRecordCode == "" {
		c.FuelRecordCode = "C"
	}
	if c.FuelTaxCode == "" {
		c.FuelTaxCode = "5"
	}
	if c.FuelRegimeCode == "" {
		c.FuelRegimeCode = "001"
	}
	if c.FuelConstantCode == "" {
		c.FuelConstantCode = "3"
	}
	if c.DefaultDocumentType == "" {
		c.DefaultDocumentType = "06"
	}

	defaults := map[string]string{
		"out_invoice": "01",
		"in_invoice":  "01",
		"out_refund":  "03",
		"in_refund":   "03",
		"entry":       "06",
	}
	if c.DocumentTypes == nil {
		c.DocumentTypes = make(map[string]string, len(defaults))
	}
	for k, v := range defaults {
		if _, ok := c.DocumentTypes[k]; !ok {
			c.DocumentTypes[k] = v
		}
	}
}

// DocumentType returns the document code for an entry type.
func (c Codes) DocumentType(moveType string) string {
	if code, ok := c.DocumentTypes[moveType]; ok && code != "" {
		return code
	}
	if c.DefaultDocumentType != "" {
		return c.DefaultDocumentType
	}
	return "06"
}

// Period parses the date range. Empty bounds are returned as zero times.
func (r *RunConfig) Period() (from, to time.Time, err error) {
	if r.DateFrom != "" {
		if from, err = time.Parse(time.DateOnly, r.DateFrom); err != nil {
			return from, to, fmt.Errorf("date_from %q: expected YYYY-MM-DD", r.DateFrom)
		}
	}
	if r.DateTo != "" {
		if to, err = time.Parse(time.DateOnly, r.DateTo); err != nil {
			return from, to, fmt.Errorf("date_to %q: expected YYYY-MM-DD", r.DateTo)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, fmt.Errorf("date_from %s cannot be after date_to %s", r.DateFrom, r.DateTo)
	}
	return from, to, nil
}
