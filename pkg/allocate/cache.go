package allocate

// LineCache binds color families to lines, separately per pool. The first
// family seen in a pool gets the pool's first line, the next family the
// next line, wrapping round-robin. Bindings never change within a run.
type LineCache struct {
	pools map[string]map[string]string
}

// NewLineCache returns an empty cache.
func NewLineCache() *LineCache {
	return &LineCache{pools: make(map[string]map[string]string)}
}

// Assign returns the line bound to family in the named pool, binding one
// if the family is new to the pool. It returns "" for an empty pool.
func (c *LineCache) Assign(poolName string, pool []string, family string) string {
	if len(pool) == 0 {
		return ""
	}
	m, ok := c.pools[poolName]
	if !ok {
		m = make(map[string]string)
		c.pools[poolName] = m
	}
	if line, ok := m[family]; ok {
		return line
	}
	line := pool[len(m)%len(pool)]
	m[family] = line
	return line
}

// Lookup returns the bound line without assigning.
func (c *LineCache) Lookup(poolName, family string) (string, bool) {
	line, ok := c.pools[poolName][family]
	return line, ok
}
