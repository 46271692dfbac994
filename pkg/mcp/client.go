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

// Package mcp speaks JSON-RPC 2.0 to remote MCP tool servers over a
// streamable-HTTP transport, discovers their tools, and exposes them
// through a process-wide manager as registry adapters (spec §4.3, §4.4).
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/aradaai/agentcore/pkg/engerrors"
	"github.com/aradaai/agentcore/pkg/tool"
)

const (
	protocolVersion = "2025-06-18"
	connectTimeout  = 10 * time.Second
	requestTimeout  = 30 * time.Second
)

// State is a client's connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateActive       State = "active"
	StateError        State = "error"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// ToolInfo describes one remote tool, prior to registry namespacing.
type ToolInfo struct {
	Name        string
	Description string
	Params      []tool.ParamSchema
}

// Client talks to one remote MCP server over HTTP. Requests are not
// serialized: concurrent calls go out as concurrent HTTP requests carrying
// the same session id; mu guards only the client's own fields.
type Client struct {
	serverID string
	url      string
	headers  map[string]string

	httpClient *http.Client

	mu        sync.Mutex
	state     State
	sessionID string
	lastError string

	nextID atomic.Int64
}

// NewClient constructs a disconnected client for one MCP server.
func NewClient(serverID, url string, headers map[string]string) *Client {
	return &Client{
		serverID:   serverID,
		url:        url,
		headers:    headers,
		httpClient: &http.Client{Timeout: requestTimeout},
		state:      StateDisconnected,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Connect initializes the session and discovers the server's tools. On
// any failure the client is reset to disconnected, matching spec §4.3's
// "close the HTTP client, clear tools/session, remain disconnected."
func (c *Client) Connect(ctx context.Context) ([]ToolInfo, error) {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := c.initialize(connectCtx); err != nil {
		c.fail(err)
		return nil, err
	}

	tools, err := c.listTools(ctx)
	if err != nil {
		c.fail(err)
		return nil, err
	}

	c.mu.Lock()
	c.state = StateActive
	c.lastError = ""
	c.mu.Unlock()

	return tools, nil
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.sessionID = ""
	c.lastError = err.Error()
	c.mu.Unlock()
}

func (c *Client) initialize(ctx context.Context) error {
	_, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "agentcore", "version": "1.0.0"},
	})
	if err != nil {
		return err
	}
	// notifications/initialized expects no response; errors here are logged
	// but non-fatal, matching hector's tolerant initialize handling.
	if err := c.notify(ctx, "notifications/initialized", map[string]any{}); err != nil {
		slog.Debug("mcp notifications/initialized failed (non-fatal)", "server", c.serverID, "error", err)
	}
	return nil
}

func (c *Client) listTools(ctx context.Context) ([]ToolInfo, error) {
	raw, err := c.call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	var result struct {
		Tools []mcpgo.Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, engerrors.Wrap(engerrors.KindSchemaParseError, "mcp: malformed tools/list result", err)
	}

	out := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		out = append(out, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			Params:      schemaToParams(t.InputSchema),
		})
	}
	return out, nil
}

// CallTool invokes a remote tool and joins its text content blocks with
// newlines; non-text content is serialized back to a string as-is.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	raw, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}

	var result mcpgo.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", engerrors.Wrap(engerrors.KindSchemaParseError, "mcp: malformed tools/call result", err)
	}
	if result.IsError {
		return "", engerrors.New(engerrors.KindToolExecutionError, joinContent(result.Content))
	}
	return joinContent(result.Content), nil
}

func joinContent(blocks []mcpgo.Content) string {
	var parts []string
	for _, b := range blocks {
		if tc, ok := b.(mcpgo.TextContent); ok {
			parts = append(parts, tc.Text)
			continue
		}
		raw, err := json.Marshal(b)
		if err == nil {
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, "\n")
}

func (c *Client) notify(ctx context.Context, method string, params any) error {
	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mcp: notification returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.KindFatal, "mcp: failed to marshal request", err)
	}

	httpReq, err := c.newHTTPRequest(reqCtx, body)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.KindTransportError, "mcp: failed to build request", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.KindTransportError, fmt.Sprintf("mcp: request to %s failed", method), err)
	}
	defer httpResp.Body.Close()

	if sessionID := httpResp.Header.Get("Mcp-Session-Id"); sessionID != "" {
		c.mu.Lock()
		c.sessionID = sessionID
		c.mu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(httpResp.Body)
		return nil, engerrors.Wrap(engerrors.KindTransportError,
			fmt.Sprintf("mcp: %s returned HTTP %d: %s", method, httpResp.StatusCode, string(b)), nil)
	}

	var rpcResp *rpcResponse
	if strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		rpcResp, err = parseSSE(httpResp.Body)
	} else {
		rpcResp, err = parseJSON(httpResp.Body)
	}
	if err != nil {
		return nil, engerrors.Wrap(engerrors.KindSchemaParseError, fmt.Sprintf("mcp: could not parse %s response", method), err)
	}

	if rpcResp.Error != nil {
		return nil, engerrors.New(engerrors.KindToolExecutionError, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("MCP-Protocol-Version", protocolVersion)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	return req, nil
}

func parseJSON(r io.Reader) (*rpcResponse, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// parseSSE reads line-delimited SSE events, returning the first one whose
// "data:" line decodes to a JSON-RPC response (spec §4.3).
func parseSSE(r io.Reader) (*rpcResponse, error) {
	reader := bufio.NewReader(r)
	var data strings.Builder

	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "data:") {
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")))
		} else if trimmed == "" && data.Len() > 0 {
			var resp rpcResponse
			if jsonErr := json.Unmarshal([]byte(data.String()), &resp); jsonErr == nil {
				return &resp, nil
			}
			data.Reset()
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if data.Len() > 0 {
		var resp rpcResponse
		if jsonErr := json.Unmarshal([]byte(data.String()), &resp); jsonErr == nil {
			return &resp, nil
		}
	}
	return nil, fmt.Errorf("mcp: SSE stream ended without a complete message")
}

// schemaToParams converts the MCP input JSON schema into the tool
// registry's parameter shape (spec §4.4): {integer,number}->number,
// {string,boolean,array,object} unchanged, enum/default carried over,
// arrays always get an items schema (default {type:string}).
func schemaToParams(schema mcpgo.ToolInputSchema) []tool.ParamSchema {
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}

	out := make([]tool.ParamSchema, 0, len(schema.Properties))
	for name, raw := range schema.Properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, tool.ParamSchema{
			Name:        name,
			Type:        mapSchemaType(stringField(prop, "type")),
			Description: stringField(prop, "description"),
			Required:    required[name],
			Default:     prop["default"],
			Enum:        stringSliceField(prop, "enum"),
			Items:       itemsSchema(prop),
		})
	}
	return out
}

func mapSchemaType(t string) string {
	switch t {
	case "integer", "number":
		return "number"
	case "":
		return "string"
	default:
		return t
	}
}

func itemsSchema(prop map[string]any) *tool.ParamSchema {
	if mapSchemaType(stringField(prop, "type")) != "array" {
		return nil
	}
	items, ok := prop["items"].(map[string]any)
	if !ok {
		return &tool.ParamSchema{Type: "string"}
	}
	itemType := mapSchemaType(stringField(items, "type"))
	if itemType == "" {
		itemType = "string"
	}
	return &tool.ParamSchema{Type: itemType}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
