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

package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrieving_TruncatesQueryPreview(t *testing.T) {
	long := strings.Repeat("a", 150)
	e := Retrieving("kb1", long)
	assert.Len(t, e.Payload["query_preview"], 100)
}

func TestToolEnd_TruncatesResultPreview(t *testing.T) {
	long := strings.Repeat("b", 300)
	e := ToolEnd("search", true, long)
	assert.Len(t, e.Payload["result_preview"], 200)
}

func TestToolStart_OmitsEmptyFields(t *testing.T) {
	e := ToolStart("search", "", "")
	_, hasID := e.Payload["tool_id"]
	_, hasArgs := e.Payload["args_preview"]
	assert.False(t, hasID)
	assert.False(t, hasArgs)
}

func TestChanSink_DropsWhenFull(t *testing.T) {
	s := NewChanSink(1)
	s.Emit(Thinking("a"))
	s.Emit(Thinking("b")) // buffer full, should be dropped, not block

	got := <-s.ch
	assert.Equal(t, "a", got.Payload["step"])
}

func TestPlan_Defaults(t *testing.T) {
	p := Plan{}
	assert.Equal(t, 50, p.chunkSize())
	assert.Greater(t, p.chunkDelay().Nanoseconds(), int64(0))
}
