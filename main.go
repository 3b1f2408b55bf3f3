// =============================================================================
// SICORE Export - Main Entry Point
// =============================================================================
//
// USAGE:
//   sicore export   - Generate an upload file from the ledger
//   sicore inspect  - Check an export file against its layout
//   sicore layouts  - List layouts or write an XLSX layout template
//   sicore runs     - List previous export runs
//   sicore version  - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Encoding, extraction, generation and persistence
//   - pkg/utils  : File management shared by the commands
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sicore-export/cmd"
)

func main() {
	cmd.Execute()
}
