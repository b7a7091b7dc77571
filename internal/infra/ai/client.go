// Package ai talks to an OpenAI-compatible chat completions endpoint for
// skill suggestions, summary drafts, and document revamps.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("ai: generator unavailable")

type Client struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// SuggestSkills returns up to eight skills relevant to the target role.
func (c *Client) SuggestSkills(ctx context.Context, targetRole string) ([]string, error) {
	prompt := fmt.Sprintf(
		"List the 8 most relevant professional skills for a %s. Reply with a plain comma-separated list, no numbering, no extra text.",
		targetRole,
	)
	raw, err := c.complete(ctx, prompt, 120)
	if err != nil {
		return nil, err
	}
	var skills []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.Trim(strings.TrimSpace(s), ".")
		if s != "" {
			skills = append(skills, s)
		}
	}
	if len(skills) == 0 {
		return nil, ErrUnavailable
	}
	if len(skills) > 8 {
		skills = skills[:8]
	}
	return skills, nil
}

// DraftSummary writes a 2-3 sentence professional summary from the collected
// role, skills, and most recent employer.
func (c *Client) DraftSummary(ctx context.Context, targetRole string, skills []string, lastCompany string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a 2-3 sentence professional resume summary for a %s.", targetRole)
	if len(skills) > 0 {
		fmt.Fprintf(&b, " Key skills: %s.", strings.Join(skills, ", "))
	}
	if lastCompany != "" {
		fmt.Fprintf(&b, " Most recent employer: %s.", lastCompany)
	}
	b.WriteString(" First person implied, no pronouns, no headings.")

	out, err := c.complete(ctx, b.String(), 200)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Revamp rewrites the pasted resume text with stronger action verbs and
// tighter structure, preserving all factual content.
func (c *Client) Revamp(ctx context.Context, original string) (string, error) {
	prompt := "Rewrite the following resume content with stronger action verbs, quantified achievements where present, and a clean section structure. Keep every fact, do not invent anything.\n\n" + original
	out, err := c.complete(ctx, prompt, 1500)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.7,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrUnavailable
	}
	return parsed.Choices[0].Message.Content, nil
}
