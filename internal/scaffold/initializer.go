package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/fill/internal/config"
	"github.com/dyluth/fill/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// Options are the values written into a new fill.yml.
type Options struct {
	APIURL  string
	Project string
	Family  string
	Version string
}

// withDefaults fills unset options from the target directory name.
func (o Options) withDefaults(dir string) Options {
	if o.Project == "" {
		o.Project = filepath.Base(dir)
	}
	if o.APIURL == "" {
		o.APIURL = "https://fill.example.com"
	}
	if o.Version == "" {
		o.Version = "1.0.0"
	}
	if o.Family == "" {
		o.Family = o.Version
	}
	return o
}

// CheckExisting returns an error if dir already contains a fill.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'fill init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultPath)
	}
	return nil
}

// Initialize writes a starter fill.yml into dir.
// If force is true, an existing fill.yml is replaced.
func Initialize(dir string, force bool, opts Options) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	opts = opts.withDefaults(abs)

	path := filepath.Join(abs, config.DefaultPath)
	if force {
		if _, err := os.Stat(path); err == nil {
			printer.Warning("Removing existing %s...\n", config.DefaultPath)
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
			}
		}
	}

	content, err := render(opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return validateCreatedFile(path)
}

// render executes the embedded template. It uses [[ ]] delimiters because
// download names in fill.yml are themselves {{ }} templates.
func render(opts Options) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/fill.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read fill.yml template: %w", err)
	}

	tmpl, err := template.New("fill.yml").Delims("[[", "]]").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fill.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render fill.yml: %w", err)
	}
	return buf.Bytes(), nil
}

// validateCreatedFile checks the written file loads as a fill configuration.
func validateCreatedFile(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("created %s is not valid: %w", config.DefaultPath, err)
	}
	if _, err := cfg.Artifacts(); err != nil {
		return fmt.Errorf("created %s is not valid: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess prints the success message with next steps
func PrintSuccess() {
	printer.Success("Successfully initialized Fill project!\n")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", config.DefaultPath)
	printer.Println("\nNext steps:")
	printer.Println("  1. Point build.downloads at your build outputs")
	printer.Printf("  2. Export the service token: export %s=<token>\n", config.EnvAPIToken)
	printer.Println("  3. Preview the commits of the next build: fill commits")
	printer.Println("  4. Publish: fill publish --build <n>")
}
