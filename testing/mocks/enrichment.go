package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-enrich/enrichment"
	"github.com/gaborage/go-enrich/people"
)

// MockStore provides a testify-based mock implementation of enrichment.Store.
//
// Example usage:
//
//	store := &mocks.MockStore{}
//	store.On("GetContact", mock.Anything, int64(1)).Return(contact, nil)
//	store.On("UpdateContact", mock.Anything, mock.Anything).Return(nil)
type MockStore struct {
	mock.Mock
}

var _ enrichment.Store = (*MockStore)(nil)

// GetContact implements enrichment.Store
func (m *MockStore) GetContact(ctx context.Context, id int64) (*enrichment.Contact, error) {
	arguments := m.Called(ctx, id)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(*enrichment.Contact).Clone(), arguments.Error(1)
}

// UpdateContact implements enrichment.Store. The contact is cloned before it
// is recorded so later mutations do not rewrite call history.
func (m *MockStore) UpdateContact(ctx context.Context, c *enrichment.Contact) error {
	arguments := m.Called(ctx, c.Clone())
	return arguments.Error(0)
}

// CountByStatus implements enrichment.Store
func (m *MockStore) CountByStatus(ctx context.Context) (map[enrichment.Status]int, error) {
	arguments := m.Called(ctx)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(map[enrichment.Status]int), arguments.Error(1)
}

// UpdatedStatuses returns the status of every contact passed to UpdateContact, in order.
func (m *MockStore) UpdatedStatuses() []enrichment.Status {
	var out []enrichment.Status
	for _, call := range m.Calls {
		if call.Method != "UpdateContact" {
			continue
		}
		out = append(out, call.Arguments.Get(1).(*enrichment.Contact).EnrichmentStatus)
	}
	return out
}

// MockEnricher provides a testify-based mock implementation of enrichment.Enricher.
type MockEnricher struct {
	mock.Mock
}

var _ enrichment.Enricher = (*MockEnricher)(nil)

// Enrich implements enrichment.Enricher
func (m *MockEnricher) Enrich(ctx context.Context, q people.LookupQuery) (*people.EnrichResponse, error) {
	arguments := m.Called(ctx, q)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(*people.EnrichResponse), arguments.Error(1)
}
