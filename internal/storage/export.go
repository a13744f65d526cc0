package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/dynmap/internal/dynamo"
)

type ExportData struct {
	Run    RunMetadata      `json:"run"`
	Orbits [][]dynamo.State `json:"orbits"`
}

// ExportJSON writes a run and its orbits as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, orbits [][]dynamo.State) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Orbits: orbits})
}
