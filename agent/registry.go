package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ashishbhutani/coding-agent/llm"
)

// ToolExecutor runs a tool against its decoded arguments. A returned error
// is a domain failure (bad arguments, missing file, safety denial) and is
// delivered to the model as an error result, never up the call stack.
type ToolExecutor func(args map[string]any) (string, error)

// RegisteredTool pairs a tool definition with its executor.
type RegisteredTool struct {
	Definition llm.ToolDefinition
	Executor   ToolExecutor
}

// ToolRegistry manages tool registration, lookup, and dispatch. Enumeration
// order is registration order; re-registering a name replaces the tool in
// place so the system prompt stays stable.
type ToolRegistry struct {
	order []string
	tools map[string]*RegisteredTool
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*RegisteredTool)}
}

// Register adds or replaces a tool in the registry.
func (r *ToolRegistry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &tool
}

// Get returns a registered tool by name, or nil if not found.
func (r *ToolRegistry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions returns all tool definitions in registration order, for
// sending to the LLM.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Execute dispatches one tool call and reifies every failure mode into the
// result: unknown names list the registered tools, executor errors carry
// their message, and panics are recovered. The loop never sees an exception
// from dispatch.
func (r *ToolRegistry) Execute(call llm.ToolCall) (result llm.ToolResult) {
	result = llm.ToolResult{ToolCallID: call.ID, Name: call.Name}
	defer func() {
		if p := recover(); p != nil {
			result.Content = fmt.Sprintf("tool %s panicked: %v", call.Name, p)
			result.IsError = true
		}
	}()

	tool := r.Get(call.Name)
	if tool == nil {
		result.Content = fmt.Sprintf("Unknown tool: %s. Registered tools: %s",
			call.Name, strings.Join(r.Names(), ", "))
		result.IsError = true
		return result
	}

	output, err := tool.Executor(call.Args)
	if err != nil {
		result.Content = err.Error()
		result.IsError = true
		return result
	}
	result.Content = output
	return result
}
