// Package gemini analyzes receipt images with the Generative Language API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"walleet/internal/core"
	"walleet/internal/gateway"
	"walleet/internal/log"
)

const receiptPrompt = `You read photographed receipts and invoices.
Return a JSON array with one object per expense found, using these fields:
"description" (short text), "amount" (number, total paid, dot as decimal separator),
"date" (YYYY-MM-DD), "category" and "subcategory".
Leave out fields you cannot read. Return [] when there is no expense.`

const transcriptPrompt = `Extract the expense described in the dictated sentence below.
Return a JSON array with one object per expense using the fields
"description", "amount" (number), "date" (YYYY-MM-DD), "category" and "subcategory".
Today is %s. Leave out fields that are not mentioned.

Sentence: %q`

type Config struct {
	APIKey string
	Model  string
	// Endpoint overrides the API base URL.
	Endpoint string
	// Categories are suggested to the model when set.
	Categories []string
	Location   *time.Location
	Logger     *log.Logger
}

type Client struct {
	svc        *generativelanguage.Service
	model      string
	categories []string
	loc        *time.Location
	logger     *log.Logger
}

var (
	_ gateway.Gateway          = (*Client)(nil)
	_ gateway.TranscriptParser = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		svc:        svc,
		model:      model,
		categories: cfg.Categories,
		loc:        loc,
		logger:     log.OrDefault(cfg.Logger, log.ComponentGateway),
	}, nil
}

func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) ([]core.Candidate, error) {
	if len(image) == 0 {
		return nil, &core.GatewayError{Op: "analyze", Err: core.ErrEmptyImage}
	}
	parts := []*generativelanguage.Part{
		{Text: c.withCategories(receiptPrompt)},
		{InlineData: &generativelanguage.Blob{
			Data:     base64.StdEncoding.EncodeToString(image),
			MimeType: mimeType,
		}},
	}
	c.logger.DebugContext(ctx, "Sending receipt for analysis", log.FieldMimeType, mimeType, log.FieldImageBytes, len(image))
	return c.generate(ctx, "analyze", parts)
}

func (c *Client) ParseTranscript(ctx context.Context, text string) ([]core.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	prompt := fmt.Sprintf(transcriptPrompt, core.Today(c.loc), text)
	return c.generate(ctx, "parse transcript", []*generativelanguage.Part{{Text: c.withCategories(prompt)}})
}

func (c *Client) withCategories(prompt string) string {
	if len(c.categories) == 0 {
		return prompt
	}
	return prompt + "\nPrefer one of these categories: " + strings.Join(c.categories, ", ") + "."
}

func (c *Client) generate(ctx context.Context, op string, parts []*generativelanguage.Part) ([]core.Candidate, error) {
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}
	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return nil, &core.GatewayError{Op: op, Err: err}
	}

	text := responseText(resp)
	cs, err := gateway.DecodeCandidates([]byte(text))
	if err != nil {
		c.logger.WarnContext(ctx, "Unreadable analysis response", log.FieldOperation, op, log.FieldError, err)
		return nil, &core.GatewayError{Op: op, Err: err}
	}
	c.logger.InfoContext(ctx, "Analysis completed", log.FieldOperation, op, log.FieldCount, len(cs))
	return cs, nil
}

func responseText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
