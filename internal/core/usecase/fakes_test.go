package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

type memoryBackend struct {
	mu      sync.Mutex
	objects map[domain.Category]map[string][]byte

	putErr    error
	getErr    error
	deleteErr error
	listErr   map[domain.Category]error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[domain.Category]map[string][]byte)}
}

func (b *memoryBackend) Put(_ context.Context, category domain.Category, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	if b.objects[category] == nil {
		b.objects[category] = make(map[string][]byte)
	}
	b.objects[category][id] = append([]byte(nil), data...)
	return nil
}

func (b *memoryBackend) Get(_ context.Context, category domain.Category, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	raw, ok := b.objects[category][id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (b *memoryBackend) Delete(_ context.Context, category domain.Category, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[category][id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(b.objects[category], id)
	return nil
}

func (b *memoryBackend) List(_ context.Context, category domain.Category) ([]domain.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[category]; err != nil {
		return nil, err
	}
	out := make([]domain.ObjectInfo, 0, len(b.objects[category]))
	for id, raw := range b.objects[category] {
		out = append(out, domain.ObjectInfo{ID: id, SizeBytes: int64(len(raw))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memoryBackend) Name() string { return "memory" }

func (b *memoryBackend) count(category domain.Category) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects[category])
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (a *memoryAudit) Append(_ context.Context, entry domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memoryAudit) ListByDay(_ context.Context, day time.Time) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	key := day.UTC().Format(domain.AuditDayLayout)
	var out []domain.AuditEntry
	for _, e := range a.entries {
		if e.Day() == key {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *memoryAudit) actions() []domain.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixedRetention map[domain.Category]int

func (r fixedRetention) RetentionDays(category domain.Category) int { return r[category] }

var defaultRetention = fixedRetention{
	domain.CategoryClinicalOutput:   30,
	domain.CategoryAnalysisMetadata: 90,
}

type storageObserverFake struct {
	backendErrors []string
	auditGaps     []domain.AuditAction
}

func (o *storageObserverFake) ObserveBackendError(operation string) {
	o.backendErrors = append(o.backendErrors, operation)
}

func (o *storageObserverFake) ObserveAuditGap(action domain.AuditAction) {
	o.auditGaps = append(o.auditGaps, action)
}

type intakeObserverFake struct {
	statuses []domain.StoreStatus
}

func (o *intakeObserverFake) ObserveIntake(status domain.StoreStatus, _ domain.Category) {
	o.statuses = append(o.statuses, status)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBackendDown = errors.New("backend down")
