package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	bookingDecisions map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:     make(map[string]int64),
		errorCount:       make(map[string]int64),
		bookingDecisions: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordBookingDecision counts availability outcomes per rejection reason;
// admitted checks are recorded under "admitted".
func (m *Metrics) RecordBookingDecision(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "admitted"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookingDecisions[reason]++
}

// BookingDecisions returns a copy of the decision counters.
func (m *Metrics) BookingDecisions() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.bookingDecisions))
	for k, v := range m.bookingDecisions {
		out[k] = v
	}
	return out
}
