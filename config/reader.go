package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

// Read reads a config from the given file. Environment variables referenced as $VAR or ${VAR}
// are substituted before decoding.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	conf := Default()
	if err := json.NewDecoder(r).Decode(conf); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	conf.ConfigFilePath = originalPath

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
