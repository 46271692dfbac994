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

package chromemclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToInMemoryStore(t *testing.T) {
	c, err := New(Config{EmbeddingAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, c.db)
}

func TestSearch_EmptyCollectionReturnsNoResultsWithoutCallingEmbeddingFunc(t *testing.T) {
	c, err := New(Config{EmbeddingAPIKey: "sk-test"})
	require.NoError(t, err)

	results, err := c.Search(context.Background(), "empty-collection", "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
