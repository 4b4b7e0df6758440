// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/taibuivan/todos/pkg/uuid"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiProvider implements [Provider] on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini client for model.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: failed to create gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

/*
Generate streams one model call.

Description: Thought summaries are requested so reasoning can be shown while
the model works. Text and thought parts are forwarded as deltas; function
calls are collected and returned once the stream ends.
*/
func (provider *GeminiProvider) Generate(ctx context.Context, generation Generation, onDelta func(Delta) error) (*Reply, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: generation.System}}},
		Tools:             []*genai.Tool{{FunctionDeclarations: toDeclarations(generation.Tools)}},
		ThinkingConfig:    &genai.ThinkingConfig{IncludeThoughts: true},
	}

	var (
		reply     Reply
		text      strings.Builder
		reasoning strings.Builder
	)

	for response, err := range provider.client.Models.GenerateContentStream(ctx, provider.model, toContents(generation.History), config) {
		if err != nil {
			return nil, fmt.Errorf("chat: gemini stream failed: %w", err)
		}
		if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
			continue
		}

		for _, part := range response.Candidates[0].Content.Parts {
			switch {
			case part.FunctionCall != nil:
				call, err := fromFunctionCall(part.FunctionCall)
				if err != nil {
					return nil, err
				}
				reply.Calls = append(reply.Calls, call)

			case part.Text == "":
				continue

			case part.Thought:
				reasoning.WriteString(part.Text)
				if err := onDelta(Delta{Kind: PartReasoning, Text: part.Text}); err != nil {
					return nil, err
				}

			default:
				text.WriteString(part.Text)
				if err := onDelta(Delta{Kind: PartText, Text: part.Text}); err != nil {
					return nil, err
				}
			}
		}
	}

	reply.Text = text.String()
	reply.Reasoning = reasoning.String()
	return &reply, nil
}

// # Conversions

func toDeclarations(tools []*Tool) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		declaration := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		// Gemini rejects objects without properties; omit them for no-argument tools.
		if tool.Input != nil && len(tool.Input.Properties) > 0 {
			declaration.Parameters = toSchema(tool.Input)
		}
		declarations = append(declarations, declaration)
	}
	return declarations
}

func toSchema(schema *Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	converted := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(schema.Type)),
		Description: schema.Description,
		Required:    schema.Required,
		Enum:        schema.Enum,
		Minimum:     schema.Minimum,
		Items:       toSchema(schema.Items),
	}
	if len(schema.Properties) > 0 {
		converted.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, property := range schema.Properties {
			converted.Properties[name] = toSchema(property)
		}
	}
	return converted
}

// toContents maps the history onto Gemini contents. Reasoning is not sent back.
func toContents(history []Message) []*genai.Content {
	names := toolNames(history)
	contents := make([]*genai.Content, 0, len(history))

	for _, message := range history {
		content := &genai.Content{Role: string(genai.RoleUser)}
		if message.Role == RoleAssistant {
			content.Role = string(genai.RoleModel)
		}

		for _, part := range message.Parts {
			switch part.Type {
			case PartText:
				if part.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: part.Text})
				}

			case PartToolCall:
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.ToolCallID,
					Name: part.ToolName,
					Args: decodeObject(part.Input),
				}})

			case PartToolResult:
				name := part.ToolName
				if name == "" {
					name = names[part.ToolCallID]
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       part.ToolCallID,
					Name:     name,
					Response: toResponse(part.Output),
				}})
			}
		}

		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return contents
}

func fromFunctionCall(call *genai.FunctionCall) (ToolCall, error) {
	input, err := json.Marshal(call.Args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("chat: failed to encode arguments of %s: %w", call.Name, err)
	}

	id := call.ID
	if id == "" {
		id = uuid.New()
	}
	return ToolCall{ID: id, Name: call.Name, Input: normalizeInput(input)}, nil
}

// toResponse wraps a tool output the way Gemini expects: {"output": ...}, or
// {"error": ...} for rejected calls.
func toResponse(output json.RawMessage) map[string]any {
	var value any
	if err := json.Unmarshal(output, &value); err != nil {
		return map[string]any{"output": string(output)}
	}

	if object, ok := value.(map[string]any); ok && len(object) == 1 {
		if message, ok := object["error"]; ok {
			return map[string]any{"error": message}
		}
	}
	return map[string]any{"output": value}
}

func decodeObject(raw json.RawMessage) map[string]any {
	object := map[string]any{}
	_ = json.Unmarshal(normalizeInput(raw), &object)
	return object
}
