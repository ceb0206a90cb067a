package extractor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/crawler"
)

// Factory creates a new extractor instance
type Factory func() crawler.Extractor

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an extractor type available under the given name. New sites
// register their extractor here without touching the runner.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New creates an extractor of the given registered type. Unknown types fail
// fast, before any network activity.
func New(name string) (crawler.Extractor, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported crawler type: %s, available: %v", name, Available())
	}
	lgr.Printf("[DEBUG] creating %s extractor", name)
	return factory(), nil
}

// Available returns all registered type names, sorted
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
