package testutil

import (
	"context"
	"fmt"
	"sync"

	"rowsetstats/internal/generator"
	"rowsetstats/pkg/models"
)

// MockCatalog is an in-memory generator.Catalog
type MockCatalog struct {
	mu sync.Mutex

	Views      []models.View
	ListError  error
	Columns    map[string][]string // escaped clause -> columns
	ClauseErrs map[string]error    // escaped clause -> error

	// Execution tracking
	Described []string
	Closed    bool
}

// NewMockCatalog creates a catalog holding views
func NewMockCatalog(views ...models.View) *MockCatalog {
	return &MockCatalog{
		Views:      views,
		Columns:    make(map[string][]string),
		ClauseErrs: make(map[string]error),
	}
}

// ListViews returns the configured views
func (m *MockCatalog) ListViews(ctx context.Context) ([]models.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Views, nil
}

// DescribeColumns records the clause and returns its configured columns
func (m *MockCatalog) DescribeColumns(ctx context.Context, clause string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Described = append(m.Described, clause)

	if err, exists := m.ClauseErrs[clause]; exists {
		return nil, err
	}
	columns, exists := m.Columns[clause]
	if !exists {
		return nil, fmt.Errorf("no columns configured for %s", clause)
	}
	return columns, nil
}

// Close marks the catalog closed
func (m *MockCatalog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// MockConnector hands out MockCatalog sessions that share one MockCatalog's data
type MockConnector struct {
	mu sync.Mutex

	Catalog *MockCatalog

	// ConnectErrors are returned by successive Connect calls before falling back to Catalog
	ConnectErrors []error

	Connects int
	Closes   int
}

// NewMockConnector creates a connector for catalog
func NewMockConnector(catalog *MockCatalog) *MockConnector {
	return &MockConnector{Catalog: catalog}
}

// Connect returns a session over the shared catalog
func (c *MockConnector) Connect(ctx context.Context) (generator.Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call := c.Connects
	c.Connects++

	if call < len(c.ConnectErrors) && c.ConnectErrors[call] != nil {
		return nil, c.ConnectErrors[call]
	}
	return &session{MockCatalog: c.Catalog, connector: c}, nil
}

// Open reports how many sessions are still open
func (c *MockConnector) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := 0
	for i := 0; i < c.Connects && i < len(c.ConnectErrors); i++ {
		if c.ConnectErrors[i] != nil {
			failed++
		}
	}
	return c.Connects - failed - c.Closes
}

type session struct {
	*MockCatalog
	connector *MockConnector
}

func (s *session) Close() error {
	s.connector.mu.Lock()
	s.connector.Closes++
	s.connector.mu.Unlock()
	return s.MockCatalog.Close()
}
