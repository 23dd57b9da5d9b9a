package cliconfig

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// bundleFile is the TOML layout of a call bundle:
//
//	[[call]]
//	target = "0x..."
//	data   = "0x095ea7b3..."
//	value  = "0"
type bundleFile struct {
	Calls []struct {
		Target string `toml:"target"`
		Data   string `toml:"data"`
		Value  string `toml:"value"`
	} `toml:"call"`
}

// LoadBundle reads an ordered call list from a TOML file.
func LoadBundle(path string) ([]domain.Call, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBundle(b)
}

// ParseBundle decodes an ordered call list from TOML.
func ParseBundle(b []byte) ([]domain.Call, error) {
	var f bundleFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}

	calls := make([]domain.Call, 0, len(f.Calls))
	for i, c := range f.Calls {
		call, err := domain.ParseCall(c.Target, c.Data, c.Value)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}
