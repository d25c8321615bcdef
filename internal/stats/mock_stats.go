package stats

import "github.com/stretchr/testify/mock"

// MockStatsUpdater is a testify mock satisfying StatsProvider, for tests
// that assert on metric registration and counter movement without touching
// the process-global expvar namespace.
type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
