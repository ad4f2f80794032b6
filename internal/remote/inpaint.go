/*
 * Copyright (c) 2025 the Image Studio authors.
 * Licensed under the Apache License, Version 2.0.
 */

package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"imagestudio/internal/editerr"
)

// Job statuses reported by the AI region-edit service.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobStatus is one poll response.
type JobStatus struct {
	Status    string `json:"status"`
	OutputRef string `json:"output_ref,omitempty"`
	Message   string `json:"message,omitempty"`
}

// InpaintClient talks to the AI region-edit service. The core treats it
// as a black box returning a new image reference on success.
type InpaintClient struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewInpaintClient creates a client for the given service base URL.
func NewInpaintClient(baseURL, token string, timeout time.Duration) *InpaintClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InpaintClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// SubmitInpaint sends the reference image, mask and prompt and returns a
// job id to poll.
func (c *InpaintClient) SubmitInpaint(ctx context.Context, baseImageRef string, maskBytes []byte, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"base_ref": baseImageRef,
		"mask":     base64.StdEncoding.EncodeToString(maskBytes),
		"prompt":   prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", editerr.ErrStorage, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/inpaint", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: submit inpaint: %s", editerr.ErrStorage, resp.Status)
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", editerr.ErrStorage, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: submit inpaint: empty job id", editerr.ErrStorage)
	}
	return out.JobID, nil
}

// PollJob fetches the current status of a job.
func (c *InpaintClient) PollJob(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/inpaint/"+jobID, nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return JobStatus{}, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return JobStatus{}, fmt.Errorf("%w: poll job %s: %s", editerr.ErrStorage, jobID, resp.Status)
	}
	var st JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return JobStatus{}, fmt.Errorf("%w: decode status: %v", editerr.ErrStorage, err)
	}
	return st, nil
}

// AwaitResult polls until the job finishes, the poll budget runs out, or
// the context is canceled. It returns the output reference on success.
func (c *InpaintClient) AwaitResult(ctx context.Context, jobID string, pollEvery time.Duration, maxPolls int) (string, error) {
	if pollEvery <= 0 {
		pollEvery = time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 60
	}
	t := time.NewTicker(pollEvery)
	defer t.Stop()
	for i := 0; i < maxPolls; i++ {
		st, err := c.PollJob(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch st.Status {
		case JobDone:
			if st.OutputRef == "" {
				return "", fmt.Errorf("%w: job %s done without output", editerr.ErrStorage, jobID)
			}
			return st.OutputRef, nil
		case JobFailed:
			return "", fmt.Errorf("%w: job %s failed: %s", editerr.ErrApplyFailed, jobID, st.Message)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "", fmt.Errorf("%w: job %s did not finish after %d polls", editerr.ErrStorage, jobID, maxPolls)
}
