// ABOUTME: Version constants for the segue engine
// ABOUTME: Single place for release and product identification
package version

const (
	// Version is the engine release version
	Version = "0.1.0"

	// Product is the product name reported by the CLI
	Product = "Segue"

	// Manufacturer identifies the project
	Manufacturer = "Segue Audio"
)
