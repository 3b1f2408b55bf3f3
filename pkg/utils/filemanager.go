// =============================================================================
// SICORE Export - File Manager Utility
// =============================================================================
//
// This module provides the file housekeeping around an export run:
//   - Directory setup
//   - Layout template discovery
//   - Archival of written exports
//   - Error log files for runs with failed records
//   - Archive retention
//
// ARCHIVAL STRATEGY:
//   - Export files stay in the output directory
//   - A copy goes to the archive directory after a successful write
//   - Failed runs write no export and archive nothing
//   - Error logs go to the run log directory, never beside the export
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around export runs.
type FileManager struct {
	// OutputDir is where export files are written.
	OutputDir string

	// ArchiveDir receives a copy of each export.
	ArchiveDir string

	// RunLogDir holds run records and reports.
	RunLogDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: output_archive/2025/09/30/sicore_retenciones_20250930.txt
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether exports are archived at all.
	ArchiveOnSuccess bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir, runLogDir string) *FileManager {
	return &FileManager{
		OutputDir:           outputDir,
		ArchiveDir:          archiveDir,
		RunLogDir:           runLogDir,
		UseTimestampSubdirs: false,
		ArchiveOnSuccess:    true,
		now:                 time.Now,
	}
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories if they don't exist.
// Empty entries are skipped.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir, fm.RunLogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles lists the regular files in dir with the given extension,
// sorted by name. A missing directory yields no files.
//
// PARAMETERS:
//   - dir: The directory to scan (not recursive).
//   - extension: The extension to match, e.g. ".xlsx". Case-insensitive.
func DiscoverFiles(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Skip spreadsheet lock files.
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if extension == "" || strings.EqualFold(filepath.Ext(name), extension) {
			result = append(result, filepath.Join(dir, name))
		}
	}
	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveOutputFile copies an export file to the archive directory.
//
// RETURNS:
//   - The path to the archived file, or "" when archiving is disabled.
//   - An error if archival fails.
//
// NOTE: Exports are copied, not moved, so they remain in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess || fm.ArchiveDir == "" {
		return "", nil
	}

	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}
	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// WriteErrorLog writes the per-record error log of a run as
// <export base>.errors.log in the run log directory, or in the output
// directory when no run log directory is configured. The .log suffix keeps
// it from being mistaken for an upload file.
//
// PARAMETERS:
//   - exportName: The export file name the errors belong to.
//   - entries: One message per failed record.
//
// RETURNS:
//   - The path to the error log file, or "" when there is nothing to write.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(exportName string, entries []string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	dir := fm.RunLogDir
	if dir == "" {
		dir = fm.OutputDir
	}
	base := strings.TrimSuffix(exportName, filepath.Ext(exportName))
	logPath := filepath.Join(dir, base+".errors.log")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create error log directory: %w", err)
	}
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "SICORE Export - Error Log\n"+
		"Export:       %s\n"+
		"Generated:    %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		exportName,
		fm.clock().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n  %s\n\n", i+1, entry)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}
	return removed, nil
}
