package genai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// debugEntry is one captured request/response pair.
type debugEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Method    string      `json:"method"`
	Provider  Provider    `json:"provider"`
	Model     string      `json:"model"`
	Params    interface{} `json:"params"`
	Response  interface{} `json:"response"`
	Error     string      `json:"error,omitempty"`
}

// writeDebug captures a provider exchange under <stateDir>/debug when debug mode is on.
// Failures are logged and never affect the call.
func (c *Client) writeDebug(method string, params, response interface{}, callErr error) {
	if !c.debugMode || c.stateDir == "" {
		return
	}

	entry := debugEntry{
		Timestamp: time.Now().UTC(),
		Method:    method,
		Provider:  c.provider,
		Model:     c.model,
		Params:    params,
		Response:  response,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	debugDir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.Warn("Client.writeDebug: failed to create debug directory", "error", err, "dir", debugDir)
		return
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("Client.writeDebug: failed to marshal debug entry", "error", err)
		return
	}

	name := fmt.Sprintf("%s_%s_%s.json", entry.Timestamp.Format("20060102T150405.000000000"), c.provider, method)
	path := filepath.Join(debugDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("Client.writeDebug: failed to write debug file", "error", err, "path", path)
		return
	}
	slog.Debug("Client.writeDebug: debug entry written", "path", path)
}
