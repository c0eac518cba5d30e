// Package static has runtime resources built into the program.
package static

import (
	"embed"
)

//go:embed configuration.toml stylesheet.css
var content embed.FS

// Asset loads and returns the asset for the given name.
// It returns an error if the asset could not be found or could not be loaded.
func Asset(name string) ([]byte, error) {
	return content.ReadFile(name)
}
