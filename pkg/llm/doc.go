// Package llm provides internal representations of Ollama-compatible chat
// requests and responses, and the client that streams replies from them.
package llm
