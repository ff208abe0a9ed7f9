package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/suggestit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlBatch = `
added_by: ops
items:
  - type: category
    content:
      name: Plumbing
  - type: member
    content:
      name: Mike's Plumbing
      location: New York
      rating: 4.7
`

const jsonBatch = `{"items": [{"type": "profession", "content": {"name": "Electrician"}}]}`

func TestDecodeBatch(t *testing.T) {
	batch, err := DecodeBatch([]byte(yamlBatch), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "ops", batch.AddedBy)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "member", batch.Items[1].Type)
	assert.Equal(t, core.ManualContent{Name: "Mike's Plumbing", Location: "New York", Rating: 4.7}, batch.Items[1].Content)

	batch, err = DecodeBatch([]byte(jsonBatch), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, batch.AddedBy)
	assert.Equal(t, []Item{{Type: "profession", Content: core.ManualContent{Name: "Electrician"}}}, batch.Items)

	_, err = DecodeBatch([]byte("{not json"), FormatJSON)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = DecodeBatch([]byte(jsonBatch), "toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"batch.json", FormatJSON, false},
		{"batch.YAML", FormatYAML, false},
		{"dir/batch.yml", FormatYAML, false},
		{"batch.csv", "", true},
		{"batch", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBatch), 0o600))

	batch, err := LoadBatchFile(path)
	require.NoError(t, err)
	assert.Len(t, batch.Items, 2)

	_, err = LoadBatchFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestItemRecord(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{"category", Item{Type: "category", Content: core.ManualContent{Name: "Plumbing"}}, nil},
		{"padded type", Item{Type: " location ", Content: core.ManualContent{Name: "Austin"}}, nil},
		{"unknown type", Item{Type: "widget", Content: core.ManualContent{Name: "x"}}, core.ErrInvalidManualKind},
		{"dictionary type", Item{Type: "synonym", Content: core.ManualContent{Base: "plumber"}}, core.ErrInvalidManualKind},
		{"empty content", Item{Type: "category"}, core.ErrEmptyManualContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := tt.item.record("ops")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ops", record.AddedBy)
			assert.True(t, record.Active)
		})
	}
}
