package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/browser-bridge-go/internal/protocol"
)

const defaultImageType = "image/png"

// pageSnapshot is the structured form of a browser_snapshot result. The
// extension may also answer with the bare snapshot string.
type pageSnapshot struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snapshot string `json:"snapshot"`
}

// screenshot is the structured form of a browser_screenshot result. The
// extension may also answer with the bare base64 string.
type screenshot struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// resultText renders a reply result as text: strings verbatim, anything
// else as compact JSON, nothing for a null result.
func resultText(reply *protocol.Reply) string {
	if reply == nil || reply.IsNullResult() {
		return ""
	}

	var s string
	if err := json.Unmarshal(reply.Result, &s); err == nil {
		return s
	}

	return string(reply.Result)
}

func formatSnapshot(reply *protocol.Reply) string {
	var snap pageSnapshot

	if err := reply.DecodeResult(&snap); err != nil {
		snap = pageSnapshot{Snapshot: resultText(reply)}
	}

	var b strings.Builder

	if snap.URL != "" {
		fmt.Fprintf(&b, "- Page URL: %s\n", snap.URL)
	}

	if snap.Title != "" {
		fmt.Fprintf(&b, "- Page Title: %s\n", snap.Title)
	}

	b.WriteString("- Page Snapshot\n```yaml\n")
	b.WriteString(strings.TrimRight(snap.Snapshot, "\n"))
	b.WriteString("\n```")

	return b.String()
}

// decodeScreenshot turns a screenshot result into image bytes and a MIME type.
func decodeScreenshot(reply *protocol.Reply) ([]byte, string, error) {
	if reply.IsNullResult() {
		return nil, "", fmt.Errorf("screenshot: empty result")
	}

	var shot screenshot

	var s string
	if err := json.Unmarshal(reply.Result, &s); err == nil {
		shot.Data = s
	} else if err := reply.DecodeResult(&shot); err != nil {
		return nil, "", fmt.Errorf("screenshot: %w", err)
	}

	data := shot.Data

	// Tolerate data URLs.
	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if ok {
			data = payload

			if shot.MIMEType == "" {
				shot.MIMEType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
			}
		}
	}

	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("screenshot: decode image: %w", err)
	}

	if shot.MIMEType == "" {
		shot.MIMEType = defaultImageType
	}

	return img, shot.MIMEType, nil
}

// formatConsoleLogs renders each log entry as one JSON line.
func formatConsoleLogs(reply *protocol.Reply) (string, error) {
	var entries []json.RawMessage

	if err := reply.DecodeResult(&entries); err != nil {
		return "", fmt.Errorf("console logs: %w", err)
	}

	if len(entries) == 0 {
		return "No console messages", nil
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, string(e))
	}

	return strings.Join(lines, "\n"), nil
}

// argString returns args[key] as a string, or "" when absent.
func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// confirm sends the call and answers with a fixed message built from args.
func confirm(message func(args map[string]any) string) Handler {
	return func(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error) {
		if _, err := inv.Send(ctx); err != nil {
			return nil, err
		}

		return TextResult(message(inv.Args)), nil
	}
}

// passthrough sends the call and answers with the reply result as text.
func passthrough(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error) {
	reply, err := inv.Send(ctx)
	if err != nil {
		return nil, err
	}

	return TextResult(resultText(reply)), nil
}

func snapshotHandler(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error) {
	reply, err := inv.Send(ctx)
	if err != nil {
		return nil, err
	}

	return TextResult(formatSnapshot(reply)), nil
}

func screenshotHandler(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error) {
	reply, err := inv.Send(ctx)
	if err != nil {
		return nil, err
	}

	img, mimeType, err := decodeScreenshot(reply)
	if err != nil {
		return nil, err
	}

	return ImageResult(img, mimeType), nil
}

func consoleLogsHandler(ctx context.Context, inv *Invocation) (*mcp.CallToolResult, error) {
	reply, err := inv.Send(ctx)
	if err != nil {
		return nil, err
	}

	text, err := formatConsoleLogs(reply)
	if err != nil {
		return nil, err
	}

	return TextResult(text), nil
}
