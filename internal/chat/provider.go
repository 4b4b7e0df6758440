// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import "context"

// Delta is an incremental piece of model output. Kind is [PartText] or [PartReasoning].
type Delta struct {
	Kind PartType
	Text string
}

// Generation is one model call: the system prompt, the history so far and
// the tools the model may call.
type Generation struct {
	System  string
	History []Message
	Tools   []*Tool
}

// Reply is the complete output of one model call.
type Reply struct {
	Text      string
	Reasoning string
	Calls     []ToolCall
}

// Provider is a language model that streams deltas while generating.
//
// Implementations must return promptly once ctx is cancelled and must stop
// generating if onDelta returns an error.
type Provider interface {
	Generate(ctx context.Context, generation Generation, onDelta func(Delta) error) (*Reply, error)
}
