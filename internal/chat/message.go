// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package chat implements the todo assistant: a bounded agent loop that lets
// a language model call the todo use cases as tools and streams its answer
// to the browser as Server-Sent Events.
//
// # Flow
//
//  1. The handler validates the posted history.
//  2. [Relay.Run] alternates model calls and tool dispatch, at most
//     [MaxIterations] times.
//  3. Every delta, tool input and tool output is written to the [Stream].
package chat

import (
	"encoding/json"
	"slices"
)

// Role identifies the author of a [Message].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the content of a [Part].
type PartType string

const (
	PartText       PartType = "text"
	PartReasoning  PartType = "reasoning"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is one piece of a message. Which fields are set depends on Type.
type Part struct {
	Type       PartType        `json:"type" validate:"required,oneof=text reasoning tool-call tool-result"`
	Text       string          `json:"text,omitempty" validate:"max=20000"`
	ToolCallID string          `json:"toolCallId,omitempty" validate:"max=128"`
	ToolName   string          `json:"toolName,omitempty" validate:"max=64"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// Message is one entry of the conversation history.
type Message struct {
	ID    string `json:"id,omitempty" validate:"max=128"`
	Role  Role   `json:"role" validate:"required,oneof=user assistant tool"`
	Parts []Part `json:"parts" validate:"required,min=1,max=64,dive"`
}

// Request is the body of POST /api/chat.
type Request struct {
	Messages []Message   `json:"messages" validate:"required,min=1,max=200,dive"`
	Data     RequestData `json:"data"`
}

// RequestData carries optional client metadata.
type RequestData struct {
	// ConversationID enables transcript persistence when set.
	ConversationID string `json:"conversationId,omitempty" validate:"omitempty,max=128,printascii"`
}

// ToolCall is a tool invocation proposed by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// appendMessage returns a copy of history with message appended. The input
// slice is never written to.
func appendMessage(history []Message, message Message) []Message {
	return append(slices.Clip(history), message)
}

// toolNames maps every tool-call id in history to its tool name, so results
// posted without a name can still be attributed.
func toolNames(history []Message) map[string]string {
	names := make(map[string]string)
	for _, message := range history {
		for _, part := range message.Parts {
			if part.Type == PartToolCall && part.ToolCallID != "" {
				names[part.ToolCallID] = part.ToolName
			}
		}
	}
	return names
}
