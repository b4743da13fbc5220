// Package queue defines the background analysis task and the asynq-backed
// dispatcher used when Redis is configured.
package queue

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

// TypeAnalyzeDataset parses a stored upload and runs column analysis.
const TypeAnalyzeDataset = "dataset:analyze"

// AnalyzePayload is the task body.
type AnalyzePayload struct {
	DatasetID string `json:"dataset_id"`
}

// Dispatcher schedules analysis of a dataset.
type Dispatcher interface {
	Dispatch(ctx context.Context, datasetID string) error
}

// NewAnalyzeTask builds the task for datasetID.
func NewAnalyzeTask(datasetID string) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyzePayload{DatasetID: datasetID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyzeDataset, data, asynq.MaxRetry(3)), nil
}

// ParseAnalyzePayload decodes a task body.
func ParseAnalyzePayload(t *asynq.Task) (AnalyzePayload, error) {
	var p AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	if p.DatasetID == "" {
		return p, fmt.Errorf("decode payload: missing dataset_id")
	}
	return p, nil
}

// Client enqueues analysis tasks through Redis.
type Client struct {
	client *asynq.Client
}

var _ Dispatcher = (*Client)(nil)

// RedisOpt builds connection options.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// Dispatch enqueues an analyze task.
func (c *Client) Dispatch(ctx context.Context, datasetID string) error {
	task, err := NewAnalyzeTask(datasetID)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue analyze task: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
