package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"stocksentiment/internal/stock"
)

type memEntry struct {
	storedAt time.Time
	result   stock.StockResult
}

// Memory keeps entries in process for the TTL. MaxItems bounds the map;
// when exceeded, expired entries go first, then arbitrary ones.
type Memory struct {
	MaxItems int

	opts  options
	mu    sync.RWMutex
	items map[string]memEntry
}

// NewMemory returns an in-process store.
func NewMemory(maxItems int, opts ...Option) *Memory {
	return &Memory{MaxItems: maxItems, opts: buildOptions(opts), items: make(map[string]memEntry)}
}

func (m *Memory) Location() string { return "memory" }

func (m *Memory) Get(symbol string) (stock.StockResult, bool) {
	symbol = strings.ToUpper(symbol)
	m.mu.RLock()
	e, ok := m.items[symbol]
	m.mu.RUnlock()
	if !ok {
		return stock.StockResult{}, false
	}
	if m.opts.now().Sub(e.storedAt) > m.opts.ttl {
		m.mu.Lock()
		if cur, ok := m.items[symbol]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(m.items, symbol)
		}
		m.mu.Unlock()
		return stock.StockResult{}, false
	}
	return e.result, true
}

func (m *Memory) Set(symbol string, result stock.StockResult) {
	symbol = strings.ToUpper(symbol)
	now := m.opts.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[symbol] = memEntry{storedAt: now, result: result}
	if m.MaxItems <= 0 || len(m.items) <= m.MaxItems {
		return
	}
	for k, v := range m.items {
		if now.Sub(v.storedAt) > m.opts.ttl {
			delete(m.items, k)
		}
	}
	for k := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if k != symbol {
			delete(m.items, k)
		}
	}
}

func (m *Memory) ClearExpired() int {
	now := m.opts.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, v := range m.items {
		if now.Sub(v.storedAt) > m.opts.ttl {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) Status() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.items))
	for k, v := range m.items {
		b, _ := json.Marshal(v.result)
		out = append(out, Info{Symbol: k, SizeBytes: int64(len(b)), Modified: unixSeconds(v.storedAt)})
	}
	return out, nil
}
