// =============================================================================
// Contact Formatter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Contact Formatter CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   contacts convert   - Convert a contact file into the reference layout
//   contacts serve     - Run the HTTP upload/download service
//   contacts validate  - Validate the configuration and reference file
//   contacts version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core logic (parsing, transformation, serving)
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/contact-formatter/cmd"
)

func main() {
	cmd.Execute()
}
