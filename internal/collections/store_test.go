package collections

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu sync.Mutex

	tenants     map[string]Tenant
	enabled     map[string]bool
	rules       []Rule
	obligations []Obligation
	channels    map[string]*ChannelConfig
	templates   map[string]*Template

	logs  []LogEntry
	queue []QueueEntry

	// failure injection
	listErr      error
	obligErr     map[string]error // by tenant id
	queueErr     error
	logWriteErr  error
	templateErr  error
	channelErr   error
	failRulesFor map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		tenants:      map[string]Tenant{},
		enabled:      map[string]bool{},
		channels:     map[string]*ChannelConfig{},
		templates:    map[string]*Template{},
		obligErr:     map[string]error{},
		failRulesFor: map[string]error{},
	}
}

// addTenant registers an active tenant with the module subscribed, toggle on and an active channel.
func (s *memStore) addTenant(id string) {
	s.tenants[id] = Tenant{ID: id, Name: id, Active: true, Modules: map[string]bool{"collections": true}}
	s.enabled[id] = true
	s.channels[id] = &ChannelConfig{TenantID: id, Provider: "sns", Active: true}
}

func (s *memStore) ListTenants(ctx context.Context) ([]Tenant, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Tenant, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tenants[id])
	}
	return out, nil
}

func (s *memStore) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *memStore) CollectionsEnabled(ctx context.Context, tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[tenantID], nil
}

func (s *memStore) SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[tenantID] = enabled
	return nil
}

func (s *memStore) ActiveRules(ctx context.Context, tenantID string, eventType EventType) ([]Rule, error) {
	if err := s.failRulesFor[tenantID]; err != nil {
		return nil, err
	}
	var out []Rule
	for _, r := range s.rules {
		if r.TenantID == tenantID && r.EventType == eventType && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) PendingObligationsDueOn(ctx context.Context, tenantID string, due Date) ([]Obligation, error) {
	if err := s.obligErr[tenantID]; err != nil {
		return nil, err
	}
	var out []Obligation
	for _, o := range s.obligations {
		if o.TenantID == tenantID && o.Status == StatusPending && o.DueDate.Equal(due) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) ObligationsByIDs(ctx context.Context, tenantID string, ids []string) ([]Obligation, error) {
	if err := s.obligErr[tenantID]; err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []Obligation
	for _, o := range s.obligations {
		if o.TenantID == tenantID && want[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) NotifiedObligationIDs(ctx context.Context, ruleID string, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[string]struct{}{}
	for _, l := range s.logs {
		if l.RuleID == ruleID && want[l.ObligationID] {
			out[l.ObligationID] = struct{}{}
		}
	}
	return out, nil
}

func (s *memStore) InsertLogEntries(ctx context.Context, entries []LogEntry) error {
	if s.logWriteErr != nil {
		return s.logWriteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entries...)
	return nil
}

func (s *memStore) InsertQueueEntry(ctx context.Context, entry QueueEntry) (bool, error) {
	if s.queueErr != nil {
		return false, s.queueErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queue {
		if q.IdempotencyKey == entry.IdempotencyKey {
			return false, nil
		}
	}
	s.queue = append(s.queue, entry)
	return true, nil
}

func (s *memStore) ChannelConfig(ctx context.Context, tenantID string) (*ChannelConfig, error) {
	if s.channelErr != nil {
		return nil, s.channelErr
	}
	c, ok := s.channels[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) LookupTemplate(ctx context.Context, key string) (*Template, error) {
	if s.templateErr != nil {
		return nil, s.templateErr
	}
	t, ok := s.templates[key]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *memStore) logsFor(ruleID string) []LogEntry {
	var out []LogEntry
	for _, l := range s.logs {
		if l.RuleID == ruleID {
			out = append(out, l)
		}
	}
	return out
}

type sentMessage struct {
	Phone string
	Text  string
}

// fakeTransport records sends; fail makes every send error.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	fail error
}

func (f *fakeTransport) Send(ctx context.Context, phone, text string) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Phone: phone, Text: text})
	return nil
}

func (f *fakeTransport) Name() string { return "fake" }

// recordingAudit collects audit records.
type recordingAudit struct {
	mu      sync.Mutex
	records []DispatchRecord
	err     error
}

func (a *recordingAudit) Record(ctx context.Context, rec DispatchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return a.err
}

var errBoom = errors.New("boom")
