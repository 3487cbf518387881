// Package normalize validates incoming opportunity records, canonicalizes
// their content, and suppresses duplicates within a processing batch.
package normalize

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var whitespace = regexp.MustCompile(`\s+`)

// Content canonicalizes free text for fingerprinting: lowercased, with
// runs of whitespace collapsed to single spaces.
func Content(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Fingerprint returns a short content hash over the canonical form of s.
// Identical content always yields the same fingerprint.
func Fingerprint(s string) string {
	h := sha256.Sum256([]byte(Content(s)))
	return fmt.Sprintf("%x", h[:6]) // 12 hex chars
}

// Deduper records fingerprints seen within one processing batch. It holds
// no cross-run memory: a fresh batch starts with an empty set.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	dups int
}

// NewDeduper creates an empty batch-scoped deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// SeenAndRecord atomically checks whether fp was already seen in this
// batch and records it if not. Returns true if fp was a duplicate.
func (d *Deduper) SeenAndRecord(fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[fp]; ok {
		d.dups++
		return true
	}
	d.seen[fp] = struct{}{}
	return false
}

// Duplicates reports how many records were suppressed so far.
func (d *Deduper) Duplicates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dups
}

// Size reports how many distinct fingerprints have been recorded.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Record validates rec and fills boundary defaults (timestamp, sender).
// A validation failure is a per-record condition: callers skip and count
// the record, the batch continues.
func Record(rec *model.OpportunityRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Sender == "" {
		rec.Sender = "unknown"
	}
	return nil
}
