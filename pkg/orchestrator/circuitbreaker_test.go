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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker()
	assert.False(t, b.IsOpen("research"))

	b.RecordFailure("research")
	b.RecordFailure("research")
	assert.False(t, b.IsOpen("research"))
	assert.Equal(t, CircuitClosed, b.Status("research"))

	b.RecordFailure("research")
	assert.True(t, b.IsOpen("research"))
	assert.Equal(t, CircuitOpen, b.Status("research"))
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	b := NewCircuitBreaker()
	b.RecordFailure("x")
	b.RecordFailure("x")
	b.RecordFailure("x")
	assert.True(t, b.IsOpen("x"))

	b.RecordSuccess("x")
	assert.False(t, b.IsOpen("x"))
	assert.Equal(t, CircuitClosed, b.Status("x"))
}

func TestCircuitBreaker_HalfOpenAfterRecovery(t *testing.T) {
	b := NewCircuitBreaker()
	fakeNow := time.Now()
	b.now = func() time.Time { return fakeNow }

	b.RecordFailure("x")
	b.RecordFailure("x")
	b.RecordFailure("x")
	assert.True(t, b.IsOpen("x"))

	fakeNow = fakeNow.Add(61 * time.Second)
	assert.False(t, b.IsOpen("x"), "past recovery timeout the circuit should allow a trial call")

	// one more failure should immediately re-open (failures reset to threshold-1).
	b.RecordFailure("x")
	assert.True(t, b.IsOpen("x"))
}

func TestCircuitBreaker_IndependentPerAgent(t *testing.T) {
	b := NewCircuitBreaker()
	b.RecordFailure("a")
	b.RecordFailure("a")
	b.RecordFailure("a")
	assert.True(t, b.IsOpen("a"))
	assert.False(t, b.IsOpen("b"))
}
