package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/source/weburl"
)

// DefaultCacheTTL is how long the agent list is served from memory.
const DefaultCacheTTL = time.Hour

var officeHostPattern = regexp.MustCompile(`(?i)https?://([a-z0-9\-]+)\.admin\.ch`)

// Agent is a publisher registered in the catalog.
type Agent struct {
	ID          string        `json:"id"`
	Name        catalog.Text  `json:"name"`
	DisplayName string        `json:"display_name"`
	Address     *Organization `json:"address,omitempty"`
}

// Match converts the agent into the mapper's publisher match. The
// contact address joins department and organization names when they
// differ from the agent name.
func (a Agent) Match() *catalog.PublisherMatch {
	m := &catalog.PublisherMatch{ID: a.ID, Name: a.Name}
	if a.Address == nil {
		return m
	}
	m.Email = a.Address.Email
	m.Phone = a.Address.Phone
	for _, lang := range catalog.Languages {
		var parts []string
		for _, part := range []string{a.Address.Department.Get(lang), a.Address.Organization.Get(lang)} {
			if part != "" && part != a.Name.Get(lang) && !contains(parts, part) {
				parts = append(parts, part)
			}
		}
		m.Address.Set(lang, strings.Join(parts, ", "))
	}
	return m
}

type agentResponse struct {
	ID   string   `json:"id"`
	Name flexText `json:"name"`
}

// Directory caches the agent list and resolves publishers.
type Directory struct {
	client         *Client
	staatskalender *Staatskalender
	ttl            time.Duration
	now            func() time.Time
	logger         *slog.Logger

	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker

	mu        sync.RWMutex
	agents    []Agent
	fetchedAt time.Time
	addresses map[string]*Organization
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCacheTTL sets how long a fetched agent list stays fresh.
func WithCacheTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithStaatskalender enables address enrichment from the federal
// organization directory.
func WithStaatskalender(s *Staatskalender) DirectoryOption {
	return func(d *Directory) {
		d.staatskalender = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.now = now
	}
}

// NewDirectory creates a Directory backed by client.
func NewDirectory(client *Client, opts ...DirectoryOption) *Directory {
	d := &Directory{
		client:    client,
		ttl:       DefaultCacheTTL,
		now:       time.Now,
		logger:    client.logger,
		addresses: make(map[string]*Organization),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "i14y-agents",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return d
}

// Agents returns the agent list sorted by display name. A fresh cache is
// served directly; concurrent refreshes collapse into one request. When
// a refresh fails the previous list is served if there is one.
func (d *Directory) Agents(ctx context.Context) ([]Agent, error) {
	d.mu.RLock()
	agents, fetchedAt := d.agents, d.fetchedAt
	d.mu.RUnlock()

	if agents != nil && d.now().Sub(fetchedAt) < d.ttl {
		return agents, nil
	}

	v, err, _ := d.group.Do("agents", func() (any, error) {
		return d.breaker.Execute(func() (any, error) {
			return d.fetchAgents(ctx)
		})
	})
	if err != nil {
		if agents != nil {
			d.logger.Warn("Agent refresh failed, serving stale list", "error", err, "age", d.now().Sub(fetchedAt))
			return agents, nil
		}
		return nil, fmt.Errorf("load agents: %w", err)
	}

	fresh := v.([]Agent)
	d.mu.Lock()
	d.agents = fresh
	d.fetchedAt = d.now()
	d.mu.Unlock()
	return fresh, nil
}

func (d *Directory) fetchAgents(ctx context.Context) ([]Agent, error) {
	var raw []agentResponse
	if err := d.client.getJSON(ctx, d.client.baseURL+"/Agent", &raw); err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(raw))
	for _, r := range raw {
		name := catalog.Text(r.Name)
		display := displayName(name)
		if r.ID == "" || display == "" {
			continue
		}
		agents = append(agents, Agent{ID: r.ID, Name: name, DisplayName: display})
	}
	sort.SliceStable(agents, func(i, j int) bool { return agents[i].DisplayName < agents[j].DisplayName })

	d.logger.Debug("Loaded agents", "count", len(agents))
	return agents, nil
}

// displayName prefers en, then de, then any other language.
func displayName(t catalog.Text) string {
	for _, s := range []string{t.EN, t.DE, t.FR, t.IT} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Get returns the agent with the given id (case-insensitive).
func (d *Directory) Get(ctx context.Context, id string) (Agent, bool, error) {
	agents, err := d.Agents(ctx)
	if err != nil {
		return Agent{}, false, err
	}
	a, ok := findByID(agents, id)
	return a, ok, nil
}

// Lookup resolves an organization name, agent id, email address, email
// domain or URL to an agent. Matches are tried in that order: agent id,
// name in any language, then the office abbreviation of an *.admin.ch
// domain.
func (d *Directory) Lookup(ctx context.Context, query string) (Agent, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Agent{}, false, nil
	}
	agents, err := d.Agents(ctx)
	if err != nil {
		return Agent{}, false, err
	}

	if a, ok := findByID(agents, query); ok {
		return a, true, nil
	}
	for _, a := range agents {
		for _, lang := range catalog.Languages {
			if name := a.Name.Get(lang); name != "" && strings.EqualFold(name, query) {
				return a, true, nil
			}
		}
	}

	host := query
	switch {
	case strings.Contains(query, "@"):
		host = weburl.EmailDomain(query)
	case strings.Contains(query, "://"):
		host = weburl.ExtractDomain(query)
	}
	if id := DetectOffice(agents, "https://"+strings.ToLower(host)); id != "" {
		a, ok := findByID(agents, id)
		return a, ok, nil
	}
	return Agent{}, false, nil
}

// Resolve returns the publisher match for agent id, enriched with the
// Staatskalender address when available. Address failures are logged
// and the match is returned without one.
func (d *Directory) Resolve(ctx context.Context, id string) (*catalog.PublisherMatch, error) {
	agent, ok, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: agent %q", ErrUnknownAgent, id)
	}
	agent.Address = d.address(ctx, agent)
	return agent.Match(), nil
}

// ErrUnknownAgent is returned by Resolve for ids not in the directory.
var ErrUnknownAgent = errors.New("unknown agent")

func (d *Directory) address(ctx context.Context, agent Agent) *Organization {
	if d.staatskalender == nil || agent.Name.DE == "" {
		return nil
	}

	d.mu.RLock()
	org, cached := d.addresses[agent.ID]
	d.mu.RUnlock()
	if cached {
		return org
	}

	org, err := d.staatskalender.SearchOrganization(ctx, agent.Name.DE)
	if err != nil {
		d.logger.Debug("Staatskalender lookup failed", "agent", agent.ID, "error", err)
		return nil
	}

	d.mu.Lock()
	d.addresses[agent.ID] = org
	d.mu.Unlock()
	return org
}

// DetectOffice returns the agent id CH_<ABBREV> for the first URL whose
// host is <abbrev>.admin.ch and whose id exists among agents, or "".
func DetectOffice(agents []Agent, urls ...string) string {
	for _, u := range urls {
		m := officeHostPattern.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		for _, candidate := range []string{"CH_" + strings.ToUpper(m[1]), "CH_" + strings.ToLower(m[1])} {
			if a, ok := findByID(agents, candidate); ok {
				return a.ID
			}
		}
	}
	return ""
}

func findByID(agents []Agent, id string) (Agent, bool) {
	for _, a := range agents {
		if strings.EqualFold(a.ID, id) {
			return a, true
		}
	}
	return Agent{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
