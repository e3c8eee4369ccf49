package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Arjun3125/Sovereign/internal/domain"
)

// progressEntry is one append-only record of a chunk that has completed
// embedding and vector-store insertion. Replaying the file on startup
// reconstructs the set of chunk_ids already done, so re-running ingestion
// after a crash never re-embeds work that finished (spec.md §4.1, §8
// scenario S2).
type progressEntry struct {
	ChunkId domain.ChunkId `json:"chunk_id"`
	BookId  domain.BookId  `json:"book_id"`
}

// ProgressLedger is a crash-safe, append-only JSONL record of completed
// chunk_ids, grounded on original_source/doctrine_ingestion/recovery.py's
// "journal then act" recovery model. Each append is flushed and fsynced
// before the call returns, so a crash immediately after a record was
// reported done never loses it, and a crash immediately before never
// fabricates one (spec.md §4.1: "'done' is defined as: the vector exists in
// the store AND the chunk_id has been appended to a persistent processed
// list").
type ProgressLedger struct {
	mu   sync.Mutex
	path string
	file *os.File
	done map[domain.ChunkId]bool
}

// OpenProgressLedger opens (creating if absent) the progress file at path
// and replays it to recover the set of already-done chunk_ids.
func OpenProgressLedger(path string) (*ProgressLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("progress ledger %s: mkdir: %w", path, err)
	}

	done := make(map[domain.ChunkId]bool)
	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var entry progressEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				// A truncated final line means a crash mid-append; the record
				// never completed so it is correctly treated as not-done.
				break
			}
			done[entry.ChunkId] = true
		}
		existing.Close()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("progress ledger %s: open for replay: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("progress ledger %s: open for append: %w", path, err)
	}
	return &ProgressLedger{path: path, file: f, done: done}, nil
}

// Done reports whether chunkID has already been recorded as complete.
func (p *ProgressLedger) Done(chunkID domain.ChunkId) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done[chunkID]
}

// Mark appends a completion record for chunkID and fsyncs before
// returning. Marking an already-done chunk_id is a no-op — the ledger is
// idempotent under retry.
func (p *ProgressLedger) Mark(bookID domain.BookId, chunkID domain.ChunkId) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done[chunkID] {
		return nil
	}

	line, err := json.Marshal(progressEntry{ChunkId: chunkID, BookId: bookID})
	if err != nil {
		return fmt.Errorf("progress ledger: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := p.file.Write(line); err != nil {
		return fmt.Errorf("progress ledger: append: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("progress ledger: fsync: %w", err)
	}
	p.done[chunkID] = true
	return nil
}

// Close releases the underlying file handle.
func (p *ProgressLedger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Close()
}

// Count returns the number of chunk_ids recorded as done.
func (p *ProgressLedger) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.done)
}
