// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"sync"
	"time"
)

// CircuitState is one child agent's fault-isolation state (spec §4.11).
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

const (
	failureThreshold = 3
	recoveryTimeout  = 60 * time.Second
)

// CircuitBreaker tracks per-child-agent failure state for one orchestrator
// instance. It must not leak across tenants/instances (spec §5): each
// Orchestrator owns its own breaker, keyed by child agent id, guarded by a
// mutex per spec's "map keyed by child id, updated under a mutex" shared-
// resource policy.
//
// Grounded literally on original_source/src/agents/types/orchestrator_agent.py's
// CircuitBreaker class.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  map[string]int
	openSince map[string]time.Time

	now func() time.Time // overridable for deterministic tests
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		failures:  make(map[string]int),
		openSince: make(map[string]time.Time),
		now:       time.Now,
	}
}

// RecordFailure increments the failure count; at the threshold the
// circuit opens and its open-since time is stamped.
func (b *CircuitBreaker) RecordFailure(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[agentID]++
	if b.failures[agentID] >= failureThreshold {
		if _, open := b.openSince[agentID]; !open {
			b.openSince[agentID] = b.now()
		}
	}
}

// RecordSuccess resets the circuit to closed.
func (b *CircuitBreaker) RecordSuccess(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[agentID] = 0
	delete(b.openSince, agentID)
}

// IsOpen reports whether calls to agentID should be short-circuited. Past
// the recovery timeout, the circuit transitions to half-open (resetting
// the failure count to threshold-1, allowing exactly one trial) and
// returns false so the caller proceeds with that single trial.
func (b *CircuitBreaker) IsOpen(agentID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	openedAt, open := b.openSince[agentID]
	if !open {
		return false
	}
	if b.now().Sub(openedAt) > recoveryTimeout {
		delete(b.openSince, agentID)
		b.failures[agentID] = failureThreshold - 1
		return false
	}
	return true
}

// Status reports the current state for diagnostics/testing.
func (b *CircuitBreaker) Status(agentID string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, open := b.openSince[agentID]; open {
		return CircuitOpen
	}
	if b.failures[agentID] > 0 {
		return CircuitHalfOpen
	}
	return CircuitClosed
}
