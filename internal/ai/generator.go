// Package ai produces the reaction comments. The only implementation talks
// to Gemini; a generation failure propagates to the caller as a task failure,
// never as a fabricated fallback comment.
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Request carries everything known about the post being reacted to.
// ImageURL and VideoURL are mutually exclusive; either may be empty.
type Request struct {
	Caption  string
	Target   string
	Hint     string
	ImageURL string
	VideoURL string
}

// Generator produces one comment for one post.
type Generator interface {
	Comment(ctx context.Context, req Request) (string, error)
}

// Gemini generates comments via the Gemini API.
type Gemini struct {
	client   *genai.Client
	model    string
	maxChars int
	media    *mediaFetcher
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, apiKey, model string, maxChars int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxChars <= 0 {
		maxChars = 140
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{
		client:   client,
		model:    model,
		maxChars: maxChars,
		media:    newMediaFetcher(),
	}, nil
}

// Comment generates one comment. When the request names a media URL the
// media bytes are fetched and sent alongside the prompt so the model reacts
// to what is actually in the post.
func (g *Gemini) Comment(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(buildPrompt(req, g.maxChars))}

	if url := firstNonEmpty(req.ImageURL, req.VideoURL); url != "" {
		data, mime, err := g.media.fetch(ctx, url)
		if err == nil {
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		}
		// Media fetch failure is not fatal: the caption-only prompt
		// still produces a usable comment.
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate comment: %w", err)
	}

	comment := strings.TrimSpace(resp.Text())
	if comment == "" {
		return "", fmt.Errorf("empty comment from model")
	}
	return clampComment(comment, g.maxChars), nil
}

// buildPrompt assembles the generation prompt.
func buildPrompt(req Request, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, casual, positive comment for a social media post by @%s. ", req.Target)
	fmt.Fprintf(&b, "At most %d characters. ", maxChars)
	b.WriteString("Sound like a real person: lowercase is fine, no hashtags, at most one emoji, never mention being an AI. ")
	if req.Hint != "" {
		fmt.Fprintf(&b, "Tone hint: %s. ", req.Hint)
	}
	switch {
	case req.Caption != "":
		fmt.Fprintf(&b, "The post caption is: %q", req.Caption)
	case req.VideoURL != "":
		b.WriteString("The post is a video with no caption; react to the attached media.")
	default:
		b.WriteString("The post has no caption; react to the attached image if present, otherwise keep it generic.")
	}
	b.WriteString("\nReply with the comment text only.")
	return b.String()
}

// clampComment hard-limits the comment length, cutting at a word boundary
// when one is close enough.
func clampComment(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndex(cut, " "); i > maxChars/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
