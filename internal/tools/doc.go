// Package tools holds the analysis tool registry and the
// business-intelligence report tools served over MCP.
//
// Report generation itself is thin: each tool validates its input
// struct, assembles a prompt, optionally folds in search results, and
// hands the prompt to the Completer collaborator. The search, fetch,
// and completion collaborators are interfaces; only an
// OpenAI-compatible HTTP Completer ships in this package.
package tools
