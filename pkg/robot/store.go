package robot

import (
	"errors"
	"io/fs"

	"github.com/gwillem/meped/pkg/quad"
)

// FileTrimStore keeps the trim table in the servo section of a config file.
type FileTrimStore struct {
	Path string
}

// LoadTrimTable reads the trims. A missing file yields an all zero table.
func (s FileTrimStore) LoadTrimTable() (quad.TrimTable, error) {
	cfg, err := LoadConfigFrom(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return quad.TrimTable{}, nil
	}
	if err != nil {
		return quad.TrimTable{}, err
	}
	return cfg.Servos.TrimTable(), nil
}

// SaveTrimTable writes the trims, keeping every other setting of the file.
func (s FileTrimStore) SaveTrimTable(t quad.TrimTable) error {
	cfg, err := LoadConfigFrom(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return err
	}
	cfg.Servos.SetTrimTable(t)
	return cfg.SaveTo(s.Path)
}
