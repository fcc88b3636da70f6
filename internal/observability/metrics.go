package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	classification map[string]int64
	ticketsCreated int64
	startedAt      time.Time
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds  int64            `json:"uptimeSeconds"`
	Requests       map[string]int64 `json:"requests"`
	Errors         map[string]int64 `json:"errors"`
	Classification map[string]int64 `json:"classification"`
	TicketsCreated int64            `json:"ticketsCreated"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		classification: make(map[string]int64),
		startedAt:      time.Now(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int) {
	if m == nil {
		return
	}
	key := pathKey(route, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(route, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordClassification counts classifier outcomes.
func (m *Metrics) RecordClassification(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classification[outcome]++
}

// RecordTicketCreated counts committed tickets.
func (m *Metrics) RecordTicketCreated() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsCreated++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		UptimeSeconds:  int64(time.Since(m.startedAt).Seconds()),
		Requests:       copyCounts(m.requestCount),
		Errors:         copyCounts(m.errorCount),
		Classification: copyCounts(m.classification),
		TicketsCreated: m.ticketsCreated,
	}
}

func pathKey(route, method, suffix string) string {
	return method + " " + route + "|" + suffix
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
