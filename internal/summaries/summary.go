// Package summaries reads the transcript/summary documents the AI worker
// leaves in the object store under summary/.
package summaries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/keylock"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

// Prefix is where summary documents live.
const Prefix = "summary/"

// Document is a derived summary object.
type Document struct {
	Transcript string          `json:"transcript"`
	Summary    string          `json:"summary"`
	Keywords   []string        `json:"keywords"`
	Tags       []string        `json:"tags"`
	ExtraJSON  json.RawMessage `json:"extraJson"`
}

// Key returns the summary object key for a video key:
// videos/u1/3f2a_clip.mp4 -> summary/summary_clip.json.
func Key(videoKey string) string {
	return Prefix + "summary_" + BaseName(videoKey) + ".json"
}

// BaseName is the video file name without the upload id prefix and extension.
func BaseName(videoKey string) string {
	name := path.Base(videoKey)
	if i := strings.Index(name, "_"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// NameFromKey is the inverse of Key for the name part: summary/summary_clip.json -> clip.
func NameFromKey(summaryKey string) string {
	name := strings.TrimSuffix(path.Base(summaryKey), path.Ext(summaryKey))
	return strings.TrimPrefix(name, "summary_")
}

// Parse decodes a summary document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return &d, nil
}

// ExtractTags returns the first non-empty of keywords, tags and the keywords
// inside extraJson.
func (d *Document) ExtractTags() []string {
	if tags := CleanTags(d.Keywords); len(tags) > 0 {
		return tags
	}
	if tags := CleanTags(d.Tags); len(tags) > 0 {
		return tags
	}
	return CleanTags(KeywordsFromBlob(d.ExtraJSON))
}

// KeywordsFromBlob reads keywords (or tags) out of a JSON object that may
// itself be wrapped in a JSON string.
func KeywordsFromBlob(raw json.RawMessage) []string {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil
		}
		raw = json.RawMessage(inner)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if kw := StringList(obj["keywords"]); len(kw) > 0 {
		return kw
	}
	return StringList(obj["tags"])
}

// StringList converts a decoded JSON value ([]any or comma separated string) to strings.
func StringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	}
	return nil
}

// CleanTags trims, drops empties and de-duplicates while keeping order.
func CleanTags(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ObjectReader reads whole objects.
type ObjectReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Reader loads summary documents, one reader per key at a time.
type Reader struct {
	store ObjectReader
	locks *keylock.Registry
}

// NewReader creates a Reader. locks must not be shared with thumbnail generation.
func NewReader(store ObjectReader, locks *keylock.Registry) *Reader {
	if locks == nil {
		locks = keylock.New()
	}
	return &Reader{store: store, locks: locks}
}

// Read returns the summary document for videoKey, or nil when none exists.
func (r *Reader) Read(ctx context.Context, videoKey string) (*Document, error) {
	return r.ReadKey(ctx, Key(videoKey))
}

// ReadKey is Read for an explicit summary object key.
func (r *Reader) ReadKey(ctx context.Context, key string) (*Document, error) {
	release, err := r.locks.AcquireContext(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := r.store.Read(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", key, err)
	}
	return Parse(data)
}
