package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// Repository indexes compiled artifacts found under the configured
// artifact directories. Indexing happens once, on first use.
type Repository struct {
	dirs []string
	log  *slog.Logger

	mu        sync.RWMutex
	indexed   bool
	artifacts map[string]*Artifact
	events    map[common.Hash]abi.Event
}

// NewRepository creates a new artifact repository
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	return &Repository{
		dirs: cfg.ArtifactDirs,
		log:  log.With("component", "artifacts"),
	}
}

// Index walks the artifact directories. Missing directories are skipped.
func (r *Repository) Index() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexed {
		return nil
	}

	r.artifacts = make(map[string]*Artifact)
	r.events = make(map[common.Hash]abi.Event)
	for _, ev := range erc20.Events {
		r.events[ev.ID] = ev
	}

	for _, dir := range r.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			r.log.Debug("artifact directory not found", "dir", dir)
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if info.Name() == "build-info" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
				return nil
			}
			r.processArtifact(path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to index artifacts in %s: %w", dir, err)
		}
	}

	r.log.Debug("artifacts indexed", "count", len(r.artifacts))
	r.indexed = true
	return nil
}

func (r *Repository) processArtifact(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Debug("skipping unreadable artifact", "path", path, "error", err)
		return
	}

	art, err := parseArtifact(data, strings.TrimSuffix(filepath.Base(path), ".json"))
	if err != nil {
		// Not every JSON file in an output directory is an artifact
		return
	}
	art.Path = path

	// Interfaces share names with implementations; keep the deployable one
	if existing, ok := r.artifacts[art.Name]; ok && (existing.Deployable() || !art.Deployable()) {
		r.log.Debug("duplicate artifact ignored", "name", art.Name, "path", path, "kept", existing.Path)
	} else {
		r.artifacts[art.Name] = art
	}

	for _, ev := range art.ABI.Events {
		if _, ok := r.events[ev.ID]; !ok {
			r.events[ev.ID] = ev
		}
	}
}

// Get returns the artifact of a contract kind
func (r *Repository) Get(kind string) (*Artifact, error) {
	if err := r.Index(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if art, ok := r.artifacts[kind]; ok {
		return art, nil
	}

	msg := fmt.Sprintf("artifact %s", kind)
	if suggestions := r.suggest(kind); len(suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(suggestions, ", "))
	}
	return nil, fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
}

func (r *Repository) suggest(kind string) []string {
	names := lo.Keys(r.artifacts)
	sort.Strings(names)
	matches := fuzzy.Find(kind, names)
	out := make([]string, 0, 3)
	for i := 0; i < len(matches) && i < 3; i++ {
		out = append(out, matches[i].Str)
	}
	return out
}

// ABI returns the ABI of a contract kind. An empty kind selects the
// built-in ERC20 ABI used for plain token interactions.
func (r *Repository) ABI(kind string) (*abi.ABI, error) {
	if kind == "" {
		return &erc20, nil
	}
	art, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	return &art.ABI, nil
}

// LinkedBytecode returns the creation code of kind with libraries linked
func (r *Repository) LinkedBytecode(kind string, libraries map[string]common.Address) ([]byte, error) {
	art, err := r.Get(kind)
	if err != nil {
		return nil, err
	}
	if !art.Deployable() {
		return nil, domain.Configf(kind, "artifact has no bytecode (abstract contract or interface?)")
	}
	return art.Link(libraries)
}

// Event finds an event by its topic, preferring the ABI of kind
func (r *Repository) Event(topic common.Hash, kind string) (*abi.Event, bool) {
	if kind != "" {
		if a, err := r.ABI(kind); err == nil {
			for _, ev := range a.Events {
				if ev.ID == topic {
					return &ev, true
				}
			}
		}
	}
	if err := r.Index(); err != nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.events[topic]
	if !ok {
		return nil, false
	}
	return &ev, true
}

// Selector returns the 4-byte selector of method on kind
func (r *Repository) Selector(kind, method string) ([4]byte, error) {
	a, err := r.ABI(kind)
	if err != nil {
		return [4]byte{}, err
	}
	art := &Artifact{Name: kind, ABI: *a}
	m, err := art.Method(method)
	if err != nil {
		return [4]byte{}, err
	}
	var sel [4]byte
	copy(sel[:], m.ID)
	return sel, nil
}

// HasArtifact reports whether kind can be deployed
func (r *Repository) HasArtifact(kind string) bool {
	art, err := r.Get(kind)
	return err == nil && art.Deployable()
}

var _ usecase.ABIResolver = (*Repository)(nil)
