// Copyright 2026 Poiesic Systems
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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/driftnet/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are a helpful assistant that normalizes content for better search and retrieval."

const normalizationPrompt = `You are a content normalization assistant. Your task is to convert raw content into a structured, normalized format that captures the key information in a consistent way.

Source Type: %s
Original Content:
%s

Please normalize this content by:
1. Extracting the main topic/subject
2. Identifying key facts, claims, or information
3. Removing redundant or irrelevant details
4. Structuring the information in a clear, concise format
5. Preserving important context and meaning

Return the normalized content as a well-structured text that would be useful for search and retrieval. Focus on clarity and information density.

Normalized Content:
`

// Normalizer implements ai.Normalizer using an OpenAI-compatible chat API.
type Normalizer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ ai.Normalizer = (*Normalizer)(nil)

// NewNormalizer creates a normalizer from the provided configuration.
// The config is validated and normalized before use.
func NewNormalizer(config *ai.Config) (ai.Normalizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}
	return newNormalizer(client, config), nil
}

func newNormalizer(client llms.Model, config *ai.Config) *Normalizer {
	return &Normalizer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-normalizer"),
	}
}

// Normalize asks the model for a structured rewrite of text.
func (n *Normalizer) Normalize(ctx context.Context, text, sourceKind string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.ErrEmptyInput
	}
	if sourceKind == "" {
		sourceKind = "telegram"
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(normalizationPrompt, sourceKind, text)),
	}
	opts := []llms.CallOption{llms.WithTemperature(n.temperature)}
	if n.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(n.maxTokens))
	}

	response, err := n.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		n.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyResponse
	}

	normalized := strings.TrimSpace(response.Choices[0].Content)
	if normalized == "" {
		return "", ai.ErrEmptyResponse
	}
	n.logger.Debug("normalized text", "in", len(text), "out", len(normalized))
	return normalized, nil
}
