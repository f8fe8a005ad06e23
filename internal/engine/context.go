package engine

import (
	"sync"

	"github.com/go-recipes/recipeflow/internal/engine/errs"
)

// Context is the shared, mutable artifacts store plus the process-level
// config settings that flow through a recipe run. It is the generalization
// of the teacher's ad hoc variables/cliVariables maps (utils/processor/dsl.go)
// into a first-class, clonable carrier.
//
// The insertion order of artifact keys is recorded in order and exposed by
// IterKeys; AsDict returns a plain map, which carries no order. config is
// shared by reference across every clone: it is
// process-level settings, never artifact state, and steps must not mutate
// it through ordinary artifact writes.
type Context struct {
	mu        sync.RWMutex
	artifacts map[string]interface{}
	order     []string
	config    map[string]interface{}
}

// NewContext creates an empty Context with the given config map (nil
// becomes an empty map).
func NewContext(config map[string]interface{}) *Context {
	if config == nil {
		config = map[string]interface{}{}
	}
	return &Context{
		artifacts: make(map[string]interface{}),
		config:    config,
	}
}

// Get returns the artifact at key, or def if absent. It never raises.
func (c *Context) Get(key string, def interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.artifacts[key]; ok {
		return v
	}
	return def
}

// MustGet returns the artifact at key, or a MissingArtifactError if absent.
func (c *Context) MustGet(key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.artifacts[key]
	if !ok {
		return nil, &errs.MissingArtifactError{Key: key}
	}
	return v, nil
}

// Set writes an artifact, recording key in insertion order the first time
// it is written.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.artifacts[key]; !exists {
		c.order = append(c.order, key)
	}
	c.artifacts[key] = value
}

// Contains reports whether key has been written.
func (c *Context) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.artifacts[key]
	return ok
}

// IterKeys returns artifact keys in insertion order.
func (c *Context) IterKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of artifacts.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}

// GetConfig returns the process-level config map. Callers must not mutate
// the returned map; it is shared by every clone of this Context.
func (c *Context) GetConfig() map[string]interface{} {
	return c.config
}

// Clone returns a Context whose artifacts map is duplicated at the top
// level, so writes in the clone never propagate back to the parent, while
// config continues to be shared by reference. Nested mutable values inside
// an artifact (a slice or map value) are shared by reference between parent
// and clone: step implementations must write new top-level keys rather than
// mutate a shared nested value in place, which is exactly what every
// built-in step does (see internal/engine/steps).
func (c *Context) Clone() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	artifacts := make(map[string]interface{}, len(c.artifacts))
	for k, v := range c.artifacts {
		artifacts[k] = v
	}
	order := make([]string, len(c.order))
	copy(order, c.order)
	return &Context{
		artifacts: artifacts,
		order:     order,
		config:    c.config,
	}
}

// AsDict returns a snapshot of the artifacts map for diagnostics.
func (c *Context) AsDict() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.artifacts))
	for k, v := range c.artifacts {
		out[k] = v
	}
	return out
}
