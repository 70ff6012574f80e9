// Package cloudinit validates cloud-init documents and writes them onto a
// mounted boot partition.
package cloudinit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfig is returned for unreadable, malformed or mistyped documents
	// and for unusable mount paths.
	ErrConfig = errors.New("cloud-init config error")
	// ErrConfigNotFound is returned when a source document does not exist.
	ErrConfigNotFound = fmt.Errorf("%w: not found", ErrConfig)
)

// File names read by cloud-init's NoCloud datasource.
const (
	UserDataFile = "user-data"
	MetaDataFile = "meta-data"
)

const cloudConfigHeader = "#cloud-config\n"

// Canonicalize parses data as YAML and re-encodes it with sorted keys and
// two-space indentation. The document root must be a mapping.
func Canonicalize(data []byte) ([]byte, error) {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse: %w", ErrConfig, err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("%w: parse: %w", ErrConfig, err)
		}
		return nil, fmt.Errorf("%w: expected a single document", ErrConfig)
	}
	switch doc.(type) {
	case map[string]any, map[any]any:
	case nil:
		return nil, fmt.Errorf("%w: document is empty", ErrConfig)
	default:
		return nil, fmt.Errorf("%w: document root must be a mapping, got %T", ErrConfig, doc)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrConfig, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrConfig, err)
	}
	return buf.Bytes(), nil
}

// LoadUserData reads and canonicalizes a user-data file. The result starts
// with the #cloud-config marker cloud-init requires.
func LoadUserData(path string) ([]byte, error) {
	doc, err := load(path)
	if err != nil {
		return nil, err
	}
	return append([]byte(cloudConfigHeader), doc...), nil
}

// LoadMetaData reads and canonicalizes a meta-data file.
func LoadMetaData(path string) ([]byte, error) {
	return load(path)
}

func load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	doc, err := Canonicalize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write stores userData and, when non-empty, metaData under mountPath,
// replacing existing files. The two writes are independent; a failure on
// the second leaves the first in place.
func Write(mountPath string, userData, metaData []byte, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := os.Stat(mountPath)
	if err != nil {
		return fmt.Errorf("%w: mount path: %w", ErrConfig, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: mount path %s is not a directory", ErrConfig, mountPath)
	}

	if err := writeFile(mountPath, UserDataFile, userData, logger); err != nil {
		return err
	}
	if len(metaData) == 0 {
		return nil
	}
	return writeFile(mountPath, MetaDataFile, metaData, logger)
}

func writeFile(dir, name string, data []byte, logger *slog.Logger) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrConfig, path, err)
	}
	logger.Info("wrote cloud-init file", "path", path, "bytes", len(data))
	return nil
}
