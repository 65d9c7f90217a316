// Package protocol defines the wire messages exchanged with the browser extension.
//
// Every outbound message is a Call: a JSON object carrying a unique id, the
// operation name in "type", and an arbitrary payload object. The extension
// answers each Call with exactly one Reply carrying the same id:
//
//	{"id": "01J9...", "type": "browser_navigate", "payload": {"url": "https://example.com"}}
//	{"id": "01J9...", "success": true, "result": null}
//	{"id": "01J9...", "success": false, "error": {"code": "nav_failed", "message": "..."}}
//
// ParseReply performs a strict, tagged decode of inbound data and reports
// anything that does not match one of the two reply shapes as a
// MalformedMessageError.
package protocol
