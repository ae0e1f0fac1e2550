// ABOUTME: Version history data model
// ABOUTME: One History per (service, document), entries ordered oldest first

package version

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nainya/docversions/pkg/document"
)

// Entry is one snapshot of a tracked document
type Entry struct {
	Data  document.Document `json:"data"`  // Masked document state, never empty
	User  any               `json:"user"`  // Acting user id, nil without user context
	Saved time.Time         `json:"saved"` // Capture time
}

// History is the version list of one tracked document
type History struct {
	ID       any     `json:"id"`       // Record id in the version store
	Document any     `json:"document"` // Tracked document id
	Service  string  `json:"service"`  // Name of the tracked service
	List     []Entry `json:"list"`
}

// Latest returns the most recent entry, or nil for an empty history
func (h *History) Latest() *Entry {
	if len(h.List) == 0 {
		return nil
	}
	return &h.List[len(h.List)-1]
}

// Key addresses one History
type Key struct {
	Document any
	Service  string
}

func (k Key) query(limit int) document.Query {
	return document.Query{
		Fields: map[string]any{
			"document": k.Document,
			"service":  k.Service,
		},
		Limit: limit,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%v", k.Service, k.Document)
}

// historyFromDocument decodes a version store record. The list goes through
// JSON so that in-memory and persistent adapters decode to the same shape.
func historyFromDocument(doc document.Document, idField string) (*History, error) {
	h := &History{
		ID:       doc[idField],
		Document: doc["document"],
		List:     []Entry{},
	}
	if s, ok := doc["service"].(string); ok {
		h.Service = s
	}

	if raw, ok := doc["list"]; ok && raw != nil {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode version list: %w", err)
		}
		if err := json.Unmarshal(encoded, &h.List); err != nil {
			return nil, fmt.Errorf("decode version list: %w", err)
		}
	}
	return h, nil
}
