// Package tools defines the browser tools exposed to MCP clients and the
// registry that dispatches them to the browser extension.
//
// Each tool maps its MCP arguments onto a single call whose operation name is
// the tool name. The registry validates arguments against the tool's input
// schema, makes sure the extension is attached (waiting a bounded time when
// it is not), and turns every failure into an error result rather than a
// protocol fault.
package tools
