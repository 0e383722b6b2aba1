// Package scaffold writes a starter configuration file.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/dyluth/cuebridge/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Template returns the starter configuration.
func Template() ([]byte, error) {
	content, err := templatesFS.ReadFile("templates/cuebridge.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read cuebridge.yml template: %w", err)
	}
	return content, nil
}

// CheckExisting returns an error if path already exists.
func CheckExisting(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration already exists: %s\n\nUse 'cuebridge init --force' to overwrite it", path)
	}
	return nil
}

// Initialize writes the starter configuration to path. Without force an
// existing file is left untouched and an error returned.
func Initialize(path string, force bool) error {
	if !force {
		if err := CheckExisting(path); err != nil {
			return err
		}
	}

	content, err := Template()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The template must load cleanly with the current schema.
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("created %s is not valid: %w", path, err)
	}
	return nil
}
