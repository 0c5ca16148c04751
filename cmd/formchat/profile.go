package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Profile holds the connection settings for a Formpilot account
type Profile struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	AgentID string `toml:"agent_id"`
}

func defaultProfilePath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "formpilot", "profile.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "profile.toml"
	}
	return filepath.Join(home, ".config", "formpilot", "profile.toml")
}

// LoadProfile reads the TOML profile at path and applies FORMPILOT_API_URL and
// FORMPILOT_TOKEN overrides. A missing file is only an error when required.
func LoadProfile(path string, required bool) (*Profile, error) {
	profile := &Profile{}

	if _, err := toml.DecodeFile(path, profile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || required {
			return nil, fmt.Errorf("reading profile %s: %w", path, err)
		}
	}

	if v := os.Getenv("FORMPILOT_API_URL"); v != "" {
		profile.BaseURL = v
	}
	if v := os.Getenv("FORMPILOT_TOKEN"); v != "" {
		profile.Token = v
	}
	if profile.BaseURL == "" {
		profile.BaseURL = "https://api.formpilot.io/api/v1"
	}
	return profile, nil
}
