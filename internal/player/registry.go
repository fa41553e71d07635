package player

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"mediathek/internal/log"
)

// Registry tracks the schemes each installed player can open. It is safe for
// concurrent use; Schemes returns a snapshot that later registrations do not
// change.
type Registry struct {
	mu      sync.RWMutex
	static  []string
	players map[string][]string
}

// NewRegistry creates a registry. The static schemes are always supported,
// regardless of which players register.
func NewRegistry(static ...string) *Registry {
	return &Registry{
		static:  normalize(static),
		players: make(map[string][]string),
	}
}

// Register records the schemes for a player, replacing any earlier entry.
func (r *Registry) Register(name string, schemes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[name] = normalize(schemes)
}

// Players returns the registered player names, sorted.
func (r *Registry) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.players)
	slices.Sort(names)
	return names
}

// Schemes returns the sorted union of all supported schemes.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	all := slices.Clone(r.static)
	for _, s := range r.players {
		all = append(all, s...)
	}
	r.mu.RUnlock()

	all = lo.Uniq(all)
	slices.Sort(all)
	return all
}

// Discover probes the given players in parallel and registers the ones that
// are installed. It returns the names registered.
func (r *Registry) Discover(players ...Player) []string {
	logger := log.WithComponent("player")

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		found []string
	)
	for _, p := range players {
		p := p // per-iteration copy (Go <1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !p.Available() {
				logger.Debug().Str("player", p.Name()).Msg("player not installed")
				return
			}
			r.Register(p.Name(), p.Schemes())
			mu.Lock()
			found = append(found, p.Name())
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.Sort(found)
	return found
}

func normalize(schemes []string) []string {
	return lo.Uniq(lo.FilterMap(schemes, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	}))
}
