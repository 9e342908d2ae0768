// Package telegram is a thin Bot API client on top of the persistent
// transport and the batch engine. It covers the calls the CLI needs; other
// methods go through Call with a parameter map.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tgbatch/internal/batch"
	"tgbatch/internal/config"
	"tgbatch/internal/transport"
)

// ErrEmptyFilePath is returned when getFile reports no file_path
var ErrEmptyFilePath = errors.New("empty file_path property")

// Client calls Bot API methods
type Client struct {
	tr           *transport.Transport
	pollInterval time.Duration
	base         zerolog.Logger
	logger       zerolog.Logger
}

// File is the result of getFile
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// New creates a Client from configuration. Close must be called to release connections.
func New(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	tr, err := transport.New(transport.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Client{
		tr:           tr,
		pollInterval: cfg.Transport.GetPollIntervalDuration(),
		base:         logger,
		logger:       logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Transport returns the underlying transport
func (c *Client) Transport() *transport.Transport {
	return c.tr
}

// Call invokes a method and returns its raw result
func (c *Client) Call(ctx context.Context, method string, params transport.Params) (json.RawMessage, error) {
	return c.tr.Request(ctx, method, params)
}

// GetFile returns basic info about a file and prepares it for downloading
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	raw, err := c.Call(ctx, "getFile", transport.Params{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &transport.DecodeError{Err: err}
	}
	return &f, nil
}

// DownloadFile fetches the contents of a file by its id.
// Without a file endpoint (self-hosted API server) file_path is a local path.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, ErrEmptyFilePath
	}

	data, err := c.tr.Download(ctx, f.FilePath)
	if errors.Is(err, transport.ErrNoFileEndpoint) {
		return os.ReadFile(f.FilePath)
	}
	return data, err
}

// NewBatch starts a batch session sharing the client's connection pool.
// The caller must Close the session.
func (c *Client) NewBatch() (*batch.Session, error) {
	return batch.NewSession(c.tr, batch.Options{PollInterval: c.pollInterval}, c.base)
}

// Close releases pooled connections
func (c *Client) Close() {
	c.tr.Close()
}
