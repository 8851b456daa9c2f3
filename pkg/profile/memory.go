package profile

import (
	"context"
	"errors"
	"sync"
)

// ErrProfileUnavailable is returned by a failing MemoryService.
var ErrProfileUnavailable = errors.New("profile service unavailable")

// MemoryService records profile mutations in memory for tests.
type MemoryService struct {
	mu        sync.Mutex
	tags      map[string][]string
	discounts map[string][]Discount
	Fail      bool
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		tags:      make(map[string][]string),
		discounts: make(map[string][]Discount),
	}
}

func (s *MemoryService) AddTags(_ context.Context, customerID string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return ErrProfileUnavailable
	}

	s.tags[customerID] = append(s.tags[customerID], tags...)

	return nil
}

func (s *MemoryService) ApplyDiscount(_ context.Context, customerID string, discount Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return ErrProfileUnavailable
	}

	s.discounts[customerID] = append(s.discounts[customerID], discount)

	return nil
}

func (s *MemoryService) Tags(customerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.tags[customerID]...)
}

func (s *MemoryService) Discounts(customerID string) []Discount {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Discount(nil), s.discounts[customerID]...)
}
