package sluice

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	manifestSchemaName    = "sluice-export"
	manifestFormatVersion = "1.0.0"
)

// -----------------------------------------------------------------------------
// Export manifest
// -----------------------------------------------------------------------------

// Manifest is the JSON sidecar written next to an export artifact. It lets
// downstream consumers detect truncation without parsing the artifact itself.
type Manifest struct {
	// SchemaName identifies the manifest schema.
	SchemaName string `json:"schema_name"`

	// FormatVersion identifies the manifest schema version.
	FormatVersion string `json:"format_version"`

	// Source identifies the partition the artifact was exported from.
	Source PartitionKey `json:"source"`

	// CreatedAt records when the export finished.
	CreatedAt time.Time `json:"created_at"`

	// RowsWritten is the number of table rows in the artifact.
	RowsWritten int `json:"rows_written"`

	// TotalRows is the source table's full row count.
	TotalRows int `json:"total_rows"`

	// SizeBytes is the artifact's final measured size.
	SizeBytes int64 `json:"size_bytes"`

	// LimitBytes is the budget the export ran under.
	LimitBytes int64 `json:"limit_bytes"`

	// ChunkRows is the chunk size the export ran with.
	ChunkRows int `json:"chunk_rows"`

	// Status is the export outcome ("complete", "partial", or "failed").
	Status string `json:"status"`

	// Locator is the remote address the artifact was published to, if any.
	Locator string `json:"locator,omitempty"`
}

// NewManifest builds the sidecar document for one export call.
func NewManifest(key PartitionKey, res ExportResult, budget ExportBudget) *Manifest {
	return &Manifest{
		SchemaName:    manifestSchemaName,
		FormatVersion: manifestFormatVersion,
		Source:        key,
		CreatedAt:     time.Now().UTC(),
		RowsWritten:   res.RowsWritten,
		TotalRows:     res.TotalRows,
		SizeBytes:     res.SizeBytes,
		LimitBytes:    budget.LimitBytes,
		ChunkRows:     budget.ChunkRows,
		Status:        res.Status.String(),
	}
}

// WriteManifest persists the manifest as indented JSON at path.
func WriteManifest(path string, m *Manifest) error {
	data, err := jsonCodec.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads a manifest previously written with WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := jsonCodec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
