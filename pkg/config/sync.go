package config

import (
	"math"
	"path/filepath"
	"strconv"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	// DefaultSyncConfigPath is where `foldersync sync` looks for its
	// settings when it isn't given any arguments.
	DefaultSyncConfigPath = "~/.foldersync.yaml"

	// InitialSyncConfigVersion is the first version of the sync config.
	// Config files that do not specify a version will default to this
	// version.
	InitialSyncConfigVersion = "v1alpha1"

	// SupportedSyncConfigVersion is the supported version of the sync
	// config of the current foldersync binary.
	SupportedSyncConfigVersion = "v1alpha1"

	// MaxInterval is the longest interval, in seconds, between two cycles.
	MaxInterval = math.MaxInt32
)

// ParseInterval parses the number of seconds between cycles. Only plain
// base-10 digits are accepted.
func ParseInterval(value string) (int, error) {
	seconds, err := strconv.ParseUint(value, 10, 31)
	if err != nil {
		return 0, errors.InvalidInterval{Value: value}
	}
	return int(seconds), nil
}

// Sync holds the same settings as the positional arguments of `foldersync
// sync`, plus the optional flags.
type Sync struct {
	Version string `json:"version,omitempty"`
	Source  string `json:"source"`
	Replica string `json:"replica"`

	// Interval is the number of seconds to wait between cycles. It's a
	// pointer so that a missing interval can be told apart from zero.
	Interval *int `json:"interval"`

	LogFile string `json:"logFile"`
	Watch   bool   `json:"watch,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

func (c Sync) getVersion() string {
	return c.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ExpandPath expands a leading `~` to the user's home directory.
func ExpandPath(path string) (string, error) {
	return homedirExpand(path)
}

// ParseSync parses the sync config at `path`. Relative paths within the
// config are resolved relative to the directory containing the config.
func ParseSync(path string) (Sync, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Sync{}, errors.WithContext(err, "expand config path")
	}

	config := Sync{Version: InitialSyncConfigVersion}
	if err := parseConfig(path, &config, SupportedSyncConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Sync{}, errors.NewFriendlyError("The foldersync config "+
				"file doesn't exist at %q. Either pass the source, replica, "+
				"interval, and log file as arguments, or run `foldersync "+
				"config` to create the file.", path)
		}
		return Sync{}, errors.WithContext(err, "parse")
	}

	if err := config.validate(); err != nil {
		return Sync{}, err
	}

	for _, field := range []*string{&config.Source, &config.Replica, &config.LogFile} {
		expanded, err := homedirExpand(*field)
		if err != nil {
			return Sync{}, errors.WithContext(err, "expand path")
		}

		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(filepath.Dir(path), expanded)
		}
		*field = expanded
	}
	return config, nil
}

func (c Sync) validate() error {
	required := []struct {
		name  string
		isSet bool
	}{
		{"source", c.Source != ""},
		{"replica", c.Replica != ""},
		{"interval", c.Interval != nil},
		{"logFile", c.LogFile != ""},
	}
	for _, field := range required {
		if !field.isSet {
			return errors.MissingFieldError{Field: field.name}
		}
	}

	if *c.Interval < 0 || int64(*c.Interval) > MaxInterval {
		return errors.InvalidInterval{Value: strconv.Itoa(*c.Interval)}
	}
	return nil
}

// WriteSync writes the given sync config to `path`.
func WriteSync(path string, cfg Sync) error {
	cfg.Version = SupportedSyncConfigVersion
	path, err := homedirExpand(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
