// Package render calls the document rendering service that turns a finished
// answers record into a .docx or .pdf file.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type request struct {
	JobID    string          `json:"job_id"`
	DocType  string          `json:"doc_type"`
	Template string          `json:"template,omitempty"`
	Format   string          `json:"format"`
	Answers  json.RawMessage `json:"answers"`
}

// Render produces the document bytes for a job. Format is "docx" or "pdf".
func (c *Client) Render(ctx context.Context, jobID, docType, template, format string, answers json.RawMessage) ([]byte, error) {
	payload, err := json.Marshal(request{
		JobID:    jobID,
		DocType:  docType,
		Template: template,
		Format:   format,
		Answers:  answers,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service: status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("render response: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("render service: empty document")
	}
	return doc, nil
}
