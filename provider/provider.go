package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/ratelimit"
	"github.com/hupe1980/flowmesh/tool"
)

// Provider resolves agent declarations into runnable handles.
type Provider interface {
	// GetOrCreateAgent returns a handle for the given agent identity, creating
	// and caching one on first use. Tool names must resolve in the provider's
	// tool registry.
	GetOrCreateAgent(name, id, instructions string, tools []string) (*Handle, error)
}

// ModelProvider implements Provider on top of a model.Model. It is safe for
// concurrent use; the cache is shared across all workflow runs in the process.
type ModelProvider struct {
	model    model.Model
	tools    *tool.Registry
	limiter  *ratelimit.Limiter
	logger   logging.Logger
	maxTurns int

	mu    sync.Mutex
	cache map[string]*Handle
}

// Options configure a ModelProvider.
type Options struct {
	// Tools is the registry agent tool names resolve against. A nil registry
	// means agents cannot declare tools.
	Tools *tool.Registry

	// Limiter spaces out model calls. A nil limiter disables rate limiting.
	Limiter *ratelimit.Limiter

	// Logger receives provider and handle activity.
	Logger logging.Logger

	// MaxToolTurns bounds the tool calling loop within a single Run.
	MaxToolTurns int
}

// NewModelProvider creates a provider backed by the given model.
func NewModelProvider(m model.Model, optFns ...func(o *Options)) *ModelProvider {
	opts := Options{
		Tools:        tool.NewRegistry(),
		Logger:       logging.NoOpLogger{},
		MaxToolTurns: DefaultMaxToolTurns,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxToolTurns <= 0 {
		opts.MaxToolTurns = DefaultMaxToolTurns
	}

	return &ModelProvider{
		model:    m,
		tools:    opts.Tools,
		limiter:  opts.Limiter,
		logger:   opts.Logger,
		maxTurns: opts.MaxToolTurns,
		cache:    make(map[string]*Handle),
	}
}

// Tools exposes the provider's tool registry so callers can register
// additional tools after construction.
func (p *ModelProvider) Tools() *tool.Registry { return p.tools }

// GetOrCreateAgent implements Provider. The cache key covers the full agent
// identity: two executors that share name and id but differ in instructions
// or tools get distinct handles.
func (p *ModelProvider) GetOrCreateAgent(name, id, instructions string, tools []string) (*Handle, error) {
	key := cacheKey(name, id, instructions, tools)

	p.mu.Lock()
	if h, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	resolved, err := p.tools.Resolve(tools)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	h := newHandle(p, name, id, instructions, resolved)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine may have raced us here; keep the first handle.
	if existing, ok := p.cache[key]; ok {
		return existing, nil
	}

	p.cache[key] = h
	p.logger.Debug("Created agent handle", "agent", name, "agent_id", id, "tools", tools)

	return h, nil
}

// CachedAgents returns how many distinct agent handles are cached.
func (p *ModelProvider) CachedAgents() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

func cacheKey(name, id, instructions string, tools []string) string {
	sorted := make([]string, len(tools))
	copy(sorted, tools)
	sort.Strings(sorted)
	return strings.Join([]string{name, id, instructions, strings.Join(sorted, ",")}, "\x00")
}
