package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argobridge/argobridge/internal/models"
)

// Each base-model family needs different framing to reliably emit
// well-formed <tool_call> markup. The three skeletons carry the same
// information (tool list, tool_choice, parallel flag) but differ in
// emphasis and prohibition lists.

const openaiPromptSkeleton = `You are an AI assistant that can call pre-defined tools when needed.

### Available Tools
{{tools_json}}

### Tool Usage Policy
Tool choice: {{tool_choice_json}}
- "none": Do not use tools, respond with text only
- "auto": Use tools only when necessary to answer the user's request
- "required": You MUST use at least one tool - cannot respond with text only
- {"name": "tool_name"}: Use the specified tool if relevant

Parallel calls allowed: {{parallel_flag}}

### CRITICAL: Response Format Rules

You have TWO response modes:

**MODE 1: Tool Call Response**
- Start IMMEDIATELY with <tool_call> (no text before)
- Contains ONLY valid JSON with "name" and "arguments" fields
- End with </tool_call>
- After the tool call, you MUST wait for the tool result before continuing
- Do NOT simulate tool results or continue the conversation

Format:
<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

**MODE 2: Text Response**
- Pure natural language response
- Use when no tools are needed or after receiving tool results
- Never include <tool_call> tags in text responses

### Important Constraints
- NEVER start a tool call with explanatory text like "I'll help you..." or "Let me search..."
- NEVER simulate or imagine tool results - always wait for actual results
- NEVER use tags like <tool_code>, <tool_result>, or any other XML tags
- If parallel_tool_calls is false, make only ONE tool call per response
- If you start with <tool_call>, you cannot add text before it
- If you don't start with <tool_call>, you cannot use tools in that response

### Decision Process
Before responding, ask yourself:
1. Is tool choice "required"? -> You MUST use a tool
2. Is tool choice "none"? -> You MUST NOT use tools
3. Does the user's request require a tool to answer properly?
4. If yes -> Start immediately with <tool_call>
5. If no -> Respond with natural language only

Remember: Your first character determines your response mode. Choose wisely.`

const claudePromptSkeleton = `You are an AI assistant that can call pre-defined tools to help answer questions.

## When to Use Tools vs Your Knowledge

**Use tools ONLY when:**
- You need real-time, current information (stock prices, weather, news)
- You need to perform calculations beyond simple mental math
- You need to access specific external data or APIs
- The user explicitly requests you to use a particular tool
- You genuinely cannot answer accurately with your existing knowledge

**Do NOT use tools when:**
- You can answer from your training knowledge (general facts, explanations, advice)
- The question is about concepts, definitions, or well-established information
- You can provide helpful guidance without external data
- The user is asking for your opinion, analysis, or creative input
- Simple calculations you can do mentally (basic arithmetic)

**Remember:** Your training data is extensive and valuable. Use it first, tools second.

## CRITICAL: Planning Tool Calls with Dependencies

**BEFORE making any tool calls, think through:**
1. What information do I need to answer this question?
2. What order must I get this information in?
3. Does tool B need the result from tool A?
4. Can I make these calls in parallel, or must they be sequential?

**If there are data dependencies:**
- Make ONE tool call at a time
- Wait for the result before planning your next call
- Explain your plan to the user: "First I'll get X, then use that to get Y"

**When parallel calls ARE appropriate:**
- Getting independent information (weather in 3 different cities)
- Performing separate calculations that don't depend on each other
- Only when parallel_tool_calls is true AND there are no dependencies

## How to Use Tools
When you genuinely need information beyond your knowledge, use this format anywhere in your response:

<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

You can explain what you're doing, ask for clarification, or provide context - just include the tool call when needed.

## CRITICAL: Do NOT use these formats
- Anthropic's API format: {"type": "tool_use", "id": "...", "name": "...", "input": {...}}
- Anthropic's internal XML format with invoke/parameter tags
- OpenAI's tool_calls array format

## Available Tools
{{tools_json}}

## Tool Settings
- Tool choice: {{tool_choice_json}}
  - "auto": decide carefully when tools are truly needed
  - "none": answer without tools unless absolutely necessary
  - "required": you must use at least one tool in your response
  - {"name": "tool_name"}: prefer using the specified tool when relevant
- Parallel calls: {{parallel_flag}}
  - true: you may use multiple tools in one response (only if no dependencies)
  - false: use only one tool per response

Remember: Think before you call. Plan your sequence. Respect data dependencies.`

const geminiPromptSkeleton = `You are an AI assistant. You can call tools when needed, but you must follow the exact format.

### Available Tools
{{tools_json}}

### Tool Policy
{{tool_choice_json}}
- "none" = No tools allowed
- "auto" = Use tools if needed
- "required" = Must use one tool
- {"name": "X"} = Use tool X if relevant

Parallel: {{parallel_flag}}

### RESPONSE RULES (CRITICAL)

You have exactly TWO ways to respond:

**WAY 1: Call a tool**
Your entire response must be ONLY this:
<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

**WAY 2: Give a text answer**
Write a normal response with NO XML tags at all.

### FORBIDDEN BEHAVIORS
- Do NOT use <tool_code> tags
- Do NOT use <tool_result> tags
- Do NOT simulate running tools yourself
- Do NOT write code that calls tools
- Do NOT pretend to execute tools
- Do NOT continue after making a tool call
- Do NOT mix text with tool calls

### IMPORTANT
- You are NOT executing code yourself
- You are only REQUESTING that a tool be called
- After requesting a tool call, you must WAIT
- The human will provide the tool result
- Do NOT roleplay or simulate anything

Choose ONE response type and stick to it completely.`

// promptSkeleton is a total function over the family set; unknown
// families get the OpenAI-style template.
func promptSkeleton(family models.Family) string {
	switch family {
	case models.FamilyAnthropic:
		return claudePromptSkeleton
	case models.FamilyGoogle:
		return geminiPromptSkeleton
	default:
		return openaiPromptSkeleton
	}
}

// BuildToolPrompt renders the system prompt that teaches a model without
// native function calling to emit <tool_call> markup. tools and toolChoice
// are embedded verbatim as compact JSON; a nil toolChoice embeds "none".
func BuildToolPrompt(tools []any, toolChoice any, parallelToolCalls bool, family models.Family) (string, error) {
	if tools == nil {
		tools = []any{}
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("marshal tools: %w", err)
	}

	if toolChoice == nil {
		toolChoice = "none"
	}
	choiceJSON, err := json.Marshal(toolChoice)
	if err != nil {
		return "", fmt.Errorf("marshal tool_choice: %w", err)
	}

	parallelFlag := "false"
	if parallelToolCalls {
		parallelFlag = "true"
	}

	replacer := strings.NewReplacer(
		"{{tools_json}}", string(toolsJSON),
		"{{tool_choice_json}}", string(choiceJSON),
		"{{parallel_flag}}", parallelFlag,
	)

	return replacer.Replace(promptSkeleton(family)), nil
}

// ValidateToolChoice checks the caller-supplied tool_choice against the
// accepted policy set: "none", "auto", "required", or a named-tool object.
func ValidateToolChoice(toolChoice any) error {
	switch choice := toolChoice.(type) {
	case nil:
		return nil
	case string:
		switch choice {
		case "none", "auto", "required":
			return nil
		}
		return fmt.Errorf("%w: tool_choice %q must be one of none, auto, required", ErrInvalidArgument, choice)
	case map[string]any:
		if name, ok := choice["name"].(string); ok && name != "" {
			return nil
		}
		if fn, ok := choice["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return nil
			}
		}
		return fmt.Errorf("%w: tool_choice object must carry a tool name", ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: tool_choice must be a string or object", ErrInvalidArgument)
	}
}

// validateTools requires every declared tool to carry a name, either at
// the top level or nested under an OpenAI-style function wrapper.
func validateTools(tools []any) error {
	var problems []string
	for i, tool := range tools {
		toolMap, ok := tool.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("tool %d: not an object", i))
			continue
		}
		if name, ok := toolMap["name"].(string); ok && name != "" {
			continue
		}
		if fn, ok := toolMap["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				continue
			}
		}
		problems = append(problems, fmt.Sprintf("tool %d: missing name", i))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid tool parameters: %s", ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

// InjectToolPrompt converts the request's tool fields into a system
// prompt. Existing system content is preserved: a system message or
// string-typed system field gets the prompt appended after a blank line,
// a list-typed system field gets it appended as one more element. The
// tools, tool_choice and parallel_tool_calls fields are removed so the
// upstream never sees them. The request map is mutated in place and
// returned.
func InjectToolPrompt(data map[string]any) (map[string]any, error) {
	tools, ok := data["tools"].([]any)
	if !ok || len(tools) == 0 {
		return data, nil
	}

	toolChoice := data["tool_choice"]
	parallel, _ := data["parallel_tool_calls"].(bool)

	model, _ := data["model"].(string)
	prompt, err := BuildToolPrompt(tools, toolChoice, parallel, models.DetermineFamily(model))
	if err != nil {
		return nil, err
	}

	if messages, ok := data["messages"].([]any); ok {
		found := false
		for _, msg := range messages {
			msgMap, ok := msg.(map[string]any)
			if !ok {
				continue
			}
			if role, _ := msgMap["role"].(string); role == "system" {
				switch existing := msgMap["content"].(type) {
				case string:
					msgMap["content"] = strings.TrimSpace(existing + "\n\n" + prompt)
				case []any:
					// Structured content: add the prompt as one more part.
					msgMap["content"] = append(existing, map[string]any{
						"type": "text",
						"text": prompt,
					})
				default:
					msgMap["content"] = prompt
				}
				found = true
				break
			}
		}
		if !found {
			systemMessage := map[string]any{"role": "system", "content": prompt}
			data["messages"] = append([]any{systemMessage}, messages...)
		}
	} else if system, ok := data["system"]; ok {
		switch existing := system.(type) {
		case string:
			data["system"] = strings.TrimSpace(existing + "\n\n" + prompt)
		case []any:
			data["system"] = append(existing, prompt)
		default:
			data["system"] = prompt
		}
	} else {
		data["system"] = prompt
	}

	delete(data, "tools")
	delete(data, "tool_choice")
	delete(data, "parallel_tool_calls")

	return data, nil
}

// ApplyToolsNative passes tools through untouched for OpenAI-family
// models after validating them. Conversions for the Anthropic and Google
// native formats do not exist yet, so those families fail with
// ErrNotImplemented and the caller falls back to prompt injection.
func ApplyToolsNative(data map[string]any) (map[string]any, error) {
	tools, ok := data["tools"].([]any)
	if !ok || len(tools) == 0 {
		return data, nil
	}

	model, _ := data["model"].(string)
	switch models.DetermineFamily(model) {
	case models.FamilyOpenAI:
		if err := validateTools(tools); err != nil {
			return nil, err
		}
		if err := ValidateToolChoice(data["tool_choice"]); err != nil {
			return nil, err
		}
		delete(data, "parallel_tool_calls")
		return data, nil
	case models.FamilyAnthropic:
		return nil, fmt.Errorf("convert tools to anthropic format: %w", ErrNotImplemented)
	case models.FamilyGoogle:
		return nil, fmt.Errorf("convert tools to google format: %w", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("native tool calling for unknown model family: %w", ErrNotImplemented)
	}
}

// ApplyTools runs the two-tier strategy: native tool calling first, then
// silent fallback to prompt injection. Fallback is never surfaced to the
// caller as an error.
func ApplyTools(data map[string]any) (map[string]any, error) {
	if native, err := ApplyToolsNative(data); err == nil {
		return native, nil
	}
	return InjectToolPrompt(data)
}
