// Package app holds the rpiburn command-line surface: prompting, tables
// and output formats over the device, burn and cloudinit packages.
package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/gajzzs/rpiburn/internal/device"
	"github.com/gajzzs/rpiburn/internal/platform"
)

// App carries the collaborators shared by all commands.
type App struct {
	Disks  platform.DiskManager
	Logger *slog.Logger

	geteuid      func() int
	missingTools func() []string
}

// New creates the command set over the given disk manager.
func New(disks platform.DiskManager, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Disks:        disks,
		Logger:       logger,
		geteuid:      os.Geteuid,
		missingTools: platform.MissingTools,
	}
}

func (a *App) inventory() *device.Inventory {
	return device.NewInventory(a.Disks, a.Logger)
}

const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

// writeStructured renders v as YAML or JSON.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (valid: %s, %s, %s)", format, outputTable, outputYAML, outputJSON)
}

// readLine reads one trimmed line. io.EOF is returned only when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// displayLabel applies the placeholder for unlabelled devices.
func displayLabel(d device.Device) string {
	if d.Label == "" {
		return device.UntitledLabel
	}
	return d.Label
}
