package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

// LoadFile decodes a YAML or JSON file into v. The extension picks the
// decoder; other names try YAML, then JSON. "-" reads stdin.
func LoadFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(data, path, v)
}

// Decode decodes data named filename into v.
func Decode(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		yerr := yaml.Unmarshal(data, v)
		if yerr == nil {
			return nil
		}
		if jerr := json.Unmarshal(data, v); jerr != nil {
			return fmt.Errorf("failed to parse %s: %w", filename, errors.Join(yerr, jerr))
		}
	}
	return nil
}

// LoadSession reads a session file over base. Fields absent from the file
// keep their base values. The result is defaulted and validated.
func LoadSession(path string, base openairealtime.SessionConfig) (openairealtime.SessionConfig, error) {
	cfg := base
	if err := LoadFile(path, &cfg); err != nil {
		return openairealtime.SessionConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return openairealtime.SessionConfig{}, err
	}
	return cfg, nil
}
