// Package faultinject lets tests and resilience drills raise synthetic
// failures at named operations, distinguishable from organic failures by a
// typed error carrying the fault ID.
package faultinject

import (
	"context"
	"fmt"
	"sync"
)

// CategoryShadowWrite is the fault category consulted by the dual-write
// service before every mirrored write.
const CategoryShadowWrite = "shadow_write"

// FaultError marks a synthetically injected failure. Callers detect it with
// errors.As rather than inspecting error text.
type FaultError struct {
	FaultID string
	OpKey   string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("faultinject: injected fault %s at %s", e.FaultID, e.OpKey)
}

// Injector decides whether a fault fires for an operation key of the form
// <entityType>:<operation>. Returning nil means proceed normally.
type Injector interface {
	MaybeInject(ctx context.Context, category, opKey string) error
}

type rule struct {
	faultID   string
	remaining int // <0 = fire forever
}

// Static is an armable rule-table injector. Safe for concurrent use.
type Static struct {
	mu    sync.Mutex
	rules map[string]*rule
}

var _ Injector = (*Static)(nil)

// NewStatic creates an injector with no armed rules.
func NewStatic() *Static {
	return &Static{rules: make(map[string]*rule)}
}

// Arm makes the next `times` consultations of opKey fail with the given
// fault ID. times < 0 arms the fault permanently until Disarm.
func (s *Static) Arm(opKey, faultID string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[opKey] = &rule{faultID: faultID, remaining: times}
}

// Disarm clears any rule for opKey.
func (s *Static) Disarm(opKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, opKey)
}

// Reset clears all rules. Test isolation hook.
func (s *Static) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]*rule)
}

// MaybeInject fires the armed fault for opKey, if any. The category is
// recorded in no rule today; it exists so one injector can serve multiple
// failure surfaces without key collisions.
func (s *Static) MaybeInject(_ context.Context, _, opKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[opKey]
	if !ok || r.remaining == 0 {
		return nil
	}
	if r.remaining > 0 {
		r.remaining--
	}
	return &FaultError{FaultID: r.faultID, OpKey: opKey}
}
