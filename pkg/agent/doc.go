// Package agent runs tool-using LLM sessions and exposes each one as
// an ordered stream of typed events: assistant text, tool invocations,
// and tool results. Consumers classify the stream; this package does
// not interpret the agent's output beyond relaying it.
package agent
