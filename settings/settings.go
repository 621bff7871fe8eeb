// Package settings loads the optional startup settings file. Runtime curve
// edits are never written back; the file is read exactly once.
package settings

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"griprumble-go/types"
)

type Settings struct {
	// Listen is the local address for the UI-facing HTTP API.
	Listen string `yaml:"listen"`

	LogLevel string `yaml:"log_level"`

	// VendorID selects which attached HID devices receive output.
	VendorID uint16 `yaml:"vendor_id"`

	// Curve seeds the tuning store. Absent keys keep factory defaults.
	Curve types.Curve `yaml:"curve"`
}

func Default() Settings {
	return Settings{
		Listen:   "127.0.0.1:8751",
		LogLevel: "info",
		VendorID: 0x4098,
		Curve:    types.DefaultCurve(),
	}
}

// Load reads path over the defaults. A missing file is not an error; a
// malformed one is, since silently ignoring a user's tuning would be worse.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s, nil
}
