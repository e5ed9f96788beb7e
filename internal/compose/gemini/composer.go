// Package gemini implements the generative compose strategy on top of the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/shpitdev/multi-sender-outreach/internal/compose"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds a single generation call. Zero means 60s.
	Timeout time.Duration

	Subject   string
	Signature string
}

// Composer asks Gemini for one message body per recipient. It holds no per-recipient
// session state.
type Composer struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	subject   string
	signature string
}

func New(ctx context.Context, cfg Config) (*Composer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	c := &Composer{
		client:    client,
		model:     strings.TrimSpace(cfg.Model),
		timeout:   cfg.Timeout,
		subject:   cfg.Subject,
		signature: strings.TrimSpace(cfg.Signature),
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if strings.TrimSpace(c.subject) == "" {
		c.subject = compose.DefaultSubject
	}
	if c.signature == "" {
		c.signature = compose.DefaultSignature
	}
	return c, nil
}

// Compose implements compose.Composer. Failures are returned as-is; callers do not retry.
func (c *Composer) Compose(ctx context.Context, req compose.Request) (compose.Message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(
		reqCtx,
		c.model,
		genai.Text(buildPrompt(req, c.signature)),
		&genai.GenerateContentConfig{
			CandidateCount: 1,
		},
	)
	if err != nil {
		return compose.Message{}, fmt.Errorf("gemini: generate: %w", err)
	}

	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return compose.Message{}, fmt.Errorf("gemini: %w", compose.ErrEmptyBody)
	}
	return compose.Message{Subject: c.subject, Body: body}, nil
}

func buildPrompt(req compose.Request, signature string) string {
	r := req.Recipient
	greeting := "Hi there,"
	if name := strings.TrimSpace(r.ContactName); name != "" {
		greeting = "Hi " + name + ","
	}

	var facts strings.Builder
	writeFact := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			value = "(unknown)"
		}
		facts.WriteString("- " + label + ": " + value + "\n")
	}
	writeFact("Administrator name", r.ContactName)
	writeFact("School", r.School)
	writeFact("County", r.County)
	writeFact("Entity type", r.EntityType)
	writeFact("Website", r.Website)

	// Keep this prompt free of sender credentials; only recipient fields and the
	// public signature go to the model.
	return strings.TrimSpace(`
Write a short, friendly email to a school administrator. We are a parent outreach team trying to find the right contact for the school's PTO or parent leadership group.

Recipient:
` + facts.String() + `
Rules:
- 4 to 6 sentences in the body.
- Plain text only. No subject line, no markdown, no bullet points.
- No sales language, no offers, no pricing, no links.
- Mention the school by name once.
- Start with exactly this greeting line: ` + greeting + `
- End with exactly these two lines:
Best,
` + signature + `
- Write as a person. Never mention or imply that the email was generated, drafted by AI, or written by a language model.
`)
}
