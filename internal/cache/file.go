package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stocksentiment/internal/stock"
)

const fileExt = ".json"

// File keeps one JSON record per symbol in a directory:
//
//	{ "timestamp": "<RFC 3339>", "data": <StockResult> }
//
// Writes go through a temp file and rename, so a concurrent reader sees either
// the old record or the new one. Different symbols never share a lock.
type File struct {
	dir  string
	opts options
	log  *slog.Logger
}

// NewFile creates dir if needed and returns a file-backed store.
func NewFile(dir string, logger *slog.Logger, opts ...Option) (*File, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{dir: dir, opts: buildOptions(opts), log: logger.With("component", "cache")}, nil
}

func (c *File) Location() string { return c.dir }

func (c *File) path(symbol string) string {
	return filepath.Join(c.dir, strings.ToUpper(symbol)+fileExt)
}

// Get returns the cached result for symbol. Expired and unreadable records
// are deleted and reported as a miss.
func (c *File) Get(symbol string) (stock.StockResult, bool) {
	path := c.path(symbol)
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("read cache entry", "symbol", symbol, "error", err)
		}
		return stock.StockResult{}, false
	}

	entry, err := decodeEntry(b)
	if err != nil {
		c.log.Warn("invalid cache entry, removing", "symbol", symbol, "error", err)
		c.remove(path)
		return stock.StockResult{}, false
	}

	if c.expired(entry) {
		c.log.Info("cache expired, removing", "symbol", symbol)
		c.remove(path)
		return stock.StockResult{}, false
	}

	c.log.Debug("cache hit", "symbol", symbol)
	return entry.Data, true
}

// Set stamps result with the current time and writes it. Failures are logged.
func (c *File) Set(symbol string, result stock.StockResult) {
	entry := stock.Entry{Timestamp: c.opts.now().UTC(), Data: result}
	b, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		c.log.Error("encode cache entry", "symbol", symbol, "error", err)
		return
	}
	if err := c.writeAtomic(c.path(symbol), b); err != nil {
		c.log.Error("write cache entry", "symbol", symbol, "error", err)
		return
	}
	c.log.Info("cached", "symbol", symbol)
}

func (c *File) writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// ClearExpired scans the directory and deletes expired records. A record
// that cannot be read or decoded is logged and skipped.
func (c *File) ClearExpired() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Warn("scan cache dir", "dir", c.dir, "error", err)
		return 0
	}
	removed := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		path := filepath.Join(c.dir, de.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			c.log.Warn("read cache file", "file", de.Name(), "error", err)
			continue
		}
		entry, err := decodeEntry(b)
		if err != nil {
			c.log.Warn("process cache file", "file", de.Name(), "error", err)
			continue
		}
		if !c.expired(entry) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("remove cache file", "file", de.Name(), "error", err)
			continue
		}
		removed++
		c.log.Info("removed expired cache file", "file", de.Name())
	}
	return removed
}

// Status lists the records on disk.
func (c *File) Status() ([]Info, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Symbol:    strings.TrimSuffix(de.Name(), fileExt),
			SizeBytes: fi.Size(),
			Modified:  unixSeconds(fi.ModTime()),
		})
	}
	return out, nil
}

func (c *File) expired(e stock.Entry) bool {
	return c.opts.now().Sub(e.Timestamp) > c.opts.ttl
}

func (c *File) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("remove cache file", "path", path, "error", err)
	}
}

func decodeEntry(b []byte) (stock.Entry, error) {
	var e stock.Entry
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&e); err != nil {
		return e, fmt.Errorf("decode: %w", err)
	}
	if e.Timestamp.IsZero() {
		return e, errors.New("missing timestamp")
	}
	if e.Data.Symbol == "" {
		return e, errors.New("missing data")
	}
	return e, nil
}
