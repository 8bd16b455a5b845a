// Copyright 2025 Poiesic Systems
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
	"log/slog"
	"strings"

	"github.com/poiesic/tariff/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// TextGenerator implements ai.TextGenerator using OpenAI-compatible chat APIs.
// Generation runs at temperature 0 so repeated classification sessions over
// the same product stay reproducible.
type TextGenerator struct {
	client llms.Model
	logger *slog.Logger
}

// newTextGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTextGenerator(config *ai.Config) (*TextGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat completion
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken("none"),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &TextGenerator{
		client: client,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewTextGenerator creates a new text generator using the provided configuration.
//
// Returns ai.TextGenerator interface to enforce abstraction.
func NewTextGenerator(config *ai.Config) (ai.TextGenerator, error) {
	return newTextGenerator(config)
}

// Complete generates a completion for the prompt, bounded by maxTokens.
func (g *TextGenerator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	g.logger.Debug("generating completion", "prompt_length", len(prompt), "max_tokens", maxTokens)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(maxTokens))
	if err != nil {
		g.logger.Error("failed to generate completion", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		g.logger.Debug("no choices returned from model")
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
