package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/suggestit/core"
	"gopkg.in/yaml.v3"
)

// DefaultAddedBy is recorded on imported items when the batch names no author.
const DefaultAddedBy = "batch"

// Format is the encoding of a batch document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ImportableKinds are the manual kinds accepted in a batch. Dictionary kinds
// (synonym, blacklist, whitelist) are added one at a time.
var ImportableKinds = []core.ManualKind{
	core.ManualCategory,
	core.ManualMember,
	core.ManualProfession,
	core.ManualLocation,
}

// Item is one record of a batch.
type Item struct {
	Type    string             `json:"type" yaml:"type"`
	Content core.ManualContent `json:"content" yaml:"content"`
}

// Batch is a list of items sharing an author.
type Batch struct {
	Items   []Item `json:"items" yaml:"items"`
	AddedBy string `json:"added_by,omitempty" yaml:"added_by,omitempty"`
}

// FormatFromPath picks the batch format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// DecodeBatch decodes a batch document.
func DecodeBatch(data []byte, format Format) (*Batch, error) {
	batch := &Batch{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, batch)
	case FormatYAML:
		err = yaml.Unmarshal(data, batch)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s batch: %w", core.ErrInvalidInput, format, err)
	}
	return batch, nil
}

// LoadBatchFile reads and decodes a JSON or YAML batch file.
func LoadBatchFile(path string) (*Batch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeBatch(data, format)
}

// record converts an item to a manual record, rejecting kinds outside
// ImportableKinds and empty payloads.
func (it Item) record(addedBy string) (*core.ManualRecord, error) {
	kind := core.ManualKind(strings.TrimSpace(it.Type))
	record := &core.ManualRecord{Kind: kind, Content: it.Content, AddedBy: addedBy, Active: true}
	if err := core.ValidateManualRecord(record); err != nil {
		return nil, err
	}
	for _, k := range ImportableKinds {
		if k == kind {
			return record, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: %q cannot be batch imported", core.ErrInvalidInput, core.ErrInvalidManualKind, kind)
}
