package embed

import "sync"

// Cache maps item fingerprints to embedding vectors. A fingerprint is
// written at most once; later writes for the same key are ignored so the
// vector an item was clustered with never changes mid-batch.
type Cache struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

func NewCache() *Cache {
	return &Cache{vectors: make(map[string][]float64)}
}

func (c *Cache) Get(fingerprint string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vector, ok := c.vectors[fingerprint]
	return vector, ok
}

// Put stores the vector unless the fingerprint is already present and
// reports whether the write took effect.
func (c *Cache) Put(fingerprint string, vector []float64) bool {
	if fingerprint == "" || len(vector) == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.vectors[fingerprint]; exists {
		return false
	}
	c.vectors[fingerprint] = vector
	return true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
