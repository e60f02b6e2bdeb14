package memory

import "sync"

// KeyValue is the always-available synchronous store behind the anonymous
// progress tracker (the localStorage analog: never fails, best-effort
// durability).
type KeyValue struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewKeyValue() *KeyValue {
	return &KeyValue{entries: make(map[string][]byte)}
}

func (kv *KeyValue) Get(key string) ([]byte, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	value, ok := kv.entries[key]
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, true
}

func (kv *KeyValue) Set(key string, value []byte) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	kv.entries[key] = buf
}

func (kv *KeyValue) Delete(key string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.entries, key)
}
