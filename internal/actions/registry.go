package actions

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Action)
	mu       sync.RWMutex
)

// Register records an action descriptor. Each action file registers its zero
// value from init; a duplicate name is a programming error.
func Register(a Action) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[a.Name()]; exists {
		panic(fmt.Sprintf("action %s already registered", a.Name()))
	}
	registry[a.Name()] = a
}

func List() []Action {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Action, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

func Lookup(name string) (Action, bool) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := registry[name]
	return a, ok
}
