package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/werelate/dqa/errors"
)

// Marshal renders cfg as TOML
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config to TOML")
	}
	return data, nil
}

// WriteFile writes cfg to path as TOML. An existing file is kept unless overwrite is set.
func WriteFile(cfg *Config, path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.WithHint(
			errors.Mark(errors.Newf("config file %s already exists", path), errors.ErrConflict),
			"pass --force to overwrite it",
		)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	header := []byte("# dqa configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
