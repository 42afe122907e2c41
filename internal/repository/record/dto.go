package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// recordToHash converts a domain TextRecord to a map for a single HSET.
// The embedding travels as a JSON float array in one field so the write
// stays atomic.
func recordToHash(r *domain.TextRecord) (map[string]string, error) {
	embJSON, err := json.Marshal(r.Embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	sourceJSON, err := json.Marshal(r.Source)
	if err != nil {
		return nil, fmt.Errorf("marshal source: %w", err)
	}
	return map[string]string{
		"id":         r.ID,
		"kind":       string(r.Kind),
		"owner_id":   r.OwnerID,
		"text":       r.Text,
		"embedding":  string(embJSON),
		"created_at": strconv.FormatInt(r.CreatedAt.UnixMilli(), 10),
		"source":     string(sourceJSON),
	}, nil
}

// recordFromHash hydrates a domain TextRecord from an HGETALL result map.
func recordFromHash(m map[string]string) (domain.TextRecord, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domain.TextRecord{}, fmt.Errorf("invalid created_at %q: %w", m["created_at"], err)
	}

	var embedding []float32
	if raw := m["embedding"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
			return domain.TextRecord{}, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}

	var source map[string]string
	if raw := m["source"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &source); err != nil {
			return domain.TextRecord{}, fmt.Errorf("unmarshal source: %w", err)
		}
	}

	return domain.TextRecord{
		ID:        m["id"],
		Kind:      domain.Kind(m["kind"]),
		OwnerID:   m["owner_id"],
		Text:      m["text"],
		Embedding: embedding,
		CreatedAt: time.UnixMilli(createdAt),
		Source:    source,
	}, nil
}
