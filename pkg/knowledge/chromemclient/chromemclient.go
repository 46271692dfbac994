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

// Package chromemclient is the default knowledge.Client, backed by the
// embedded, pure-Go chromem-go vector store. It stands in for an external
// retrieval service in deployments with no separate vector database.
package chromemclient

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/aradaai/agentcore/pkg/knowledge"
)

// Config configures the embedded vector store.
type Config struct {
	PersistPath string // optional; empty means in-memory only
	Compress    bool

	EmbeddingAPIKey string // OpenAI-compatible embedding API key
	EmbeddingModel  string // e.g. "text-embedding-3-small"
}

// Client is a knowledge.Client backed by chromem-go.
type Client struct {
	db            *chromem.DB
	embeddingFunc chromem.EmbeddingFunc

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New constructs a chromem-backed knowledge client.
func New(cfg Config) (*Client, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("chromemclient: failed to open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	return &Client{
		db:            db,
		embeddingFunc: chromem.NewEmbeddingFuncOpenAI(cfg.EmbeddingAPIKey, chromem.EmbeddingModelOpenAI(model)),
		collections:   make(map[string]*chromem.Collection),
	}, nil
}

func (c *Client) collection(name string) (*chromem.Collection, error) {
	c.mu.RLock()
	if col, ok := c.collections[name]; ok {
		c.mu.RUnlock()
		return col, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.collections[name]; ok {
		return col, nil
	}

	col, err := c.db.GetOrCreateCollection(name, nil, c.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("chromemclient: failed to get/create collection %q: %w", name, err)
	}
	c.collections[name] = col
	return col, nil
}

// Upsert adds or replaces a document in a collection, embedding its
// content with the configured embedding function.
func (c *Client) Upsert(ctx context.Context, collection, id, content string, metadata map[string]any) error {
	col, err := c.collection(collection)
	if err != nil {
		return err
	}

	strMeta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMeta[k] = fmt.Sprint(v)
	}

	return col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  content,
		Metadata: strMeta,
	})
}

// Search implements knowledge.Client. Results below scoreThreshold (when
// set) are dropped; chromem-go already returns them ordered by similarity.
func (c *Client) Search(ctx context.Context, collection, query string, topK int, scoreThreshold *float64) ([]knowledge.Source, error) {
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}

	n := topK
	if docCount := col.Count(); n > docCount {
		n = docCount
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromemclient: search failed: %w", err)
	}

	out := make([]knowledge.Source, 0, len(results))
	for _, r := range results {
		if scoreThreshold != nil && float64(r.Similarity) < *scoreThreshold {
			continue
		}
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		out = append(out, knowledge.Source{
			Content:  r.Content,
			Score:    float64(r.Similarity),
			Metadata: meta,
		})
	}
	return out, nil
}

var _ knowledge.Client = (*Client)(nil)
