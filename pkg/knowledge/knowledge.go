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

// Package knowledge is the retrieval collaborator (spec §4.5): the core
// treats it as an opaque, deterministic-within-an-invocation search over a
// named collection.
package knowledge

import "context"

// Source is one retrieved document.
type Source struct {
	Content  string
	Score    float64
	Metadata map[string]any
}

// Client performs top-k similarity search over a named collection. It must
// be deterministic under fixed inputs within a single invocation, since the
// workflow never re-queries on replay.
type Client interface {
	Search(ctx context.Context, collection, query string, topK int, scoreThreshold *float64) ([]Source, error)
}
