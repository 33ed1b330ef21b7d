package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"smp/internal/platform/codec"
)

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const (
	opPut    = "put"
	opDelete = "delete"

	// compactMinEntries keeps small logs from being rewritten on every start.
	compactMinEntries = 64
)

// logEntry is one change in a namespace log.
type logEntry struct {
	Op   string    `cbor:"op"`
	ID   string    `cbor:"id"`
	Data []byte    `cbor:"data,omitempty"`
	At   time.Time `cbor:"at"`
}

// FileBackend persists every namespace as an append-only CBOR change log in a
// directory. Logs are replayed on load and compacted once superseded entries
// dominate.
type FileBackend struct {
	dir    string
	logger *slog.Logger
	clock  func() time.Time

	mu    sync.Mutex
	files map[string]*filePersister
}

// FileOption configures a FileBackend.
type FileOption func(*FileBackend)

// WithFileLogger sets the logger used for recovery diagnostics.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(b *FileBackend) {
		b.logger = logger
	}
}

// WithFileClock overrides the timestamp source of log entries.
func WithFileClock(clock func() time.Time) FileOption {
	return func(b *FileBackend) {
		b.clock = clock
	}
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string, opts ...FileOption) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file backend directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	b := &FileBackend{
		dir:    dir,
		logger: slog.Default(),
		clock:  time.Now,
		files:  make(map[string]*filePersister),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Persister(namespace string) (Persister, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.files[namespace]; ok {
		return p, nil
	}
	p := &filePersister{
		path:   filepath.Join(b.dir, namespace+".log"),
		logger: b.logger.With("namespace", namespace),
		clock:  b.clock,
	}
	b.files[namespace] = p
	return p, nil
}

// Ping checks that the data directory is still accessible.
func (b *FileBackend) Ping(context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, p := range b.files {
		errs = append(errs, p.close())
	}
	return errors.Join(errs...)
}

type filePersister struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
	clock  func() time.Time
}

// LoadAll replays the log. A torn trailing entry left by a crash mid-append is
// truncated away; corruption anywhere else fails the load.
func (p *filePersister) LoadAll(ctx context.Context) ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	state := make(map[string][]byte)
	dec := codec.NewDecoder(bytes.NewReader(raw))
	entries, good := 0, 0
	for {
		var entry logEntry
		err := dec.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			p.logger.WarnContext(ctx, "truncating torn log tail", "offset", good, "size", len(raw))
			if err := os.Truncate(p.path, int64(good)); err != nil {
				return nil, fmt.Errorf("truncate %s: %w", p.path, err)
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s at offset %d: %w", p.path, good, err)
		}
		switch entry.Op {
		case opPut:
			state[entry.ID] = entry.Data
		case opDelete:
			delete(state, entry.ID)
		default:
			return nil, fmt.Errorf("decode %s at offset %d: unknown op %q", p.path, good, entry.Op)
		}
		entries++
		good = dec.NumBytesRead()
	}

	records := make([]Record, 0, len(state))
	for _, id := range sortedKeys(state) {
		records = append(records, Record{ID: id, Data: state[id]})
	}

	if entries >= compactMinEntries && entries > 2*len(records) {
		if err := p.compact(records); err != nil {
			return nil, err
		}
		p.logger.InfoContext(ctx, "change log compacted", "entries", entries, "records", len(records))
	}
	return records, nil
}

func (p *filePersister) Put(_ context.Context, id string, data []byte) error {
	return p.append(logEntry{Op: opPut, ID: id, Data: data, At: p.clock().UTC()})
}

func (p *filePersister) Delete(_ context.Context, id string) error {
	return p.append(logEntry{Op: opDelete, ID: id, At: p.clock().UTC()})
}

func (p *filePersister) append(entry logEntry) error {
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		f, err := os.OpenFile(p.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("open %s: %w", p.path, err)
		}
		p.file = f
	}
	if _, err := p.file.Write(data); err != nil {
		return fmt.Errorf("append %s: %w", p.path, err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", p.path, err)
	}
	return nil
}

// compact rewrites the log as one put per live record. The new log replaces the
// old one by rename so a crash leaves either version intact.
func (p *filePersister) compact(records []Record) error {
	if err := p.closeLocked(); err != nil {
		return err
	}
	tmp := p.path + ".compact"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	enc := codec.NewEncoder(f)
	now := p.clock().UTC()
	for _, rec := range records {
		if err := enc.Encode(logEntry{Op: opPut, ID: rec.ID, Data: rec.Data, At: now}); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", tmp, err)
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace %s: %w", p.path, err)
	}
	return nil
}

func (p *filePersister) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *filePersister) closeLocked() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}
