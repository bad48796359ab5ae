package types

import "time"

// Params is the raw parameter object supplied by a caller.
type Params map[string]any

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Schema maps parameter names to their specs. It is the sole contract the
// registry validates invocations against.
type Schema map[string]ParamSpec

// Content is one item of a result envelope's content sequence.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform success/error envelope returned by every tool
// invocation, on both transports. Callers must check IsError rather than
// relying on transport status codes alone.
type Result struct {
	Content        []Content `json:"content"`
	IsError        bool      `json:"isError"`
	IsStream       bool      `json:"isStream"`
	ToolName       string    `json:"toolName"`
	Timestamp      time.Time `json:"timestamp"`
	ChainedResults []*Result `json:"chainedResults,omitempty"`
}

// TextResult builds a success envelope with a single text content item.
func TextResult(toolName, text string) *Result {
	return &Result{
		Content:   []Content{{Type: "text", Text: text}},
		ToolName:  toolName,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorResult builds an error envelope with a human-readable message.
func ErrorResult(toolName, message string) *Result {
	r := TextResult(toolName, message)
	r.IsError = true
	return r
}

// Text returns the concatenated text of all content items.
func (r *Result) Text() string {
	out := ""
	for i, c := range r.Content {
		if i > 0 {
			out += "\n"
		}
		out += c.Text
	}
	return out
}

// ToolMetadata is the discovery listing entry for a registered tool.
type ToolMetadata struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Schema       Schema   `json:"schema"`
	ChainTargets []string `json:"chainTargets,omitempty"`
	Streaming    bool     `json:"streaming"`
}

// ProgressFunc delivers an incremental progress update (0-100) for a
// running tool. Pushes are fire-and-forget.
type ProgressFunc func(progress int, message string)
