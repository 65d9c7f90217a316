package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Catalog returns a fresh set of all browser tools.
func Catalog() []*Tool {
	return []*Tool{
		{
			Name:        "browser_navigate",
			Description: "Navigate to a URL",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"url": stringProp("The URL to navigate to"),
			}, "url"),
			Handler: confirm(func(args map[string]any) string {
				return "Navigated to " + argString(args, "url")
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_go_back",
			Description: "Go back to the previous page",
			InputSchema: objectSchema(nil),
			Handler:     confirm(fixed("Navigated back")),
			Snapshot:    true,
		},
		{
			Name:        "browser_go_forward",
			Description: "Go forward to the next page",
			InputSchema: objectSchema(nil),
			Handler:     confirm(fixed("Navigated forward")),
			Snapshot:    true,
		},
		{
			Name:        "browser_reload",
			Description: "Reload the current page",
			InputSchema: objectSchema(nil),
			Handler:     confirm(fixed("Reloaded the page")),
			Snapshot:    true,
		},
		{
			Name:        "browser_snapshot",
			Description: "Capture an accessibility snapshot of the current page. Use it to find element references for actions",
			InputSchema: objectSchema(nil),
			Handler:     snapshotHandler,
		},
		{
			Name:        "browser_click",
			Description: "Perform a click on a web page element",
			InputSchema: objectSchema(elementProps(nil), "element", "ref"),
			Handler:     confirm(onElement("Clicked")),
			Snapshot:    true,
		},
		{
			Name:        "browser_double_click",
			Description: "Perform a double click on a web page element",
			InputSchema: objectSchema(elementProps(nil), "element", "ref"),
			Handler:     confirm(onElement("Double-clicked")),
			Snapshot:    true,
		},
		{
			Name:        "browser_hover",
			Description: "Hover over an element on the page",
			InputSchema: objectSchema(elementProps(nil), "element", "ref"),
			Handler:     confirm(onElement("Hovered over")),
			Snapshot:    true,
		},
		{
			Name:        "browser_type",
			Description: "Type text into an editable element",
			InputSchema: objectSchema(elementProps(map[string]*jsonschema.Schema{
				"text":   stringProp("Text to type into the element"),
				"submit": boolProp("Whether to submit entered text (press Enter after)"),
			}), "element", "ref", "text"),
			Handler: confirm(func(args map[string]any) string {
				return fmt.Sprintf("Typed %q into %q", argString(args, "text"), argString(args, "element"))
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_fill_form",
			Description: "Fill multiple form fields at once",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"fields": arrayProp("Fields to fill in", objectSchema(map[string]*jsonschema.Schema{
					"name":  stringProp("Human-readable field name"),
					"ref":   stringProp("Exact target field reference from the page snapshot"),
					"value": stringProp("Value to fill in the field"),
				}, "name", "ref", "value")),
			}, "fields"),
			Handler: confirm(func(args map[string]any) string {
				fields, _ := args["fields"].([]any)

				return fmt.Sprintf("Filled %d form fields", len(fields))
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_select_option",
			Description: "Select an option in a dropdown",
			InputSchema: objectSchema(elementProps(map[string]*jsonschema.Schema{
				"values": arrayProp("Array of values to select in the dropdown", stringProp("")),
			}), "element", "ref", "values"),
			Handler:  confirm(onElement("Selected option in")),
			Snapshot: true,
		},
		{
			Name:        "browser_press_key",
			Description: "Press a key on the keyboard",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"key": stringProp("Name of the key to press or a character to generate, such as `ArrowLeft` or `a`"),
			}, "key"),
			Handler: confirm(func(args map[string]any) string {
				return "Pressed key " + argString(args, "key")
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_drag",
			Description: "Perform drag and drop between two elements",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"startElement": stringProp("Human-readable source element description"),
				"startRef":     stringProp("Exact source element reference from the page snapshot"),
				"endElement":   stringProp("Human-readable target element description"),
				"endRef":       stringProp("Exact target element reference from the page snapshot"),
			}, "startElement", "startRef", "endElement", "endRef"),
			Handler: confirm(func(args map[string]any) string {
				return fmt.Sprintf("Dragged %q to %q", argString(args, "startElement"), argString(args, "endElement"))
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_scroll",
			Description: "Scroll the page",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"direction": enumProp("Direction to scroll", "up", "down", "left", "right"),
				"amount":    integerProp("Number of pixels to scroll", 1),
			}, "direction"),
			Handler: confirm(func(args map[string]any) string {
				return "Scrolled " + argString(args, "direction")
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_wait",
			Description: "Wait for a specified time in seconds",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"time": numberProp("The time to wait in seconds", 0),
			}, "time"),
			Handler: confirm(func(args map[string]any) string {
				return fmt.Sprintf("Waited for %s seconds", argString(args, "time"))
			}),
		},
		{
			Name:        "browser_wait_for",
			Description: "Wait for text to appear or disappear or a specified time to pass",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"text":     stringProp("The text to wait for"),
				"textGone": stringProp("The text to wait for to disappear"),
				"time":     numberProp("The time to wait in seconds", 0),
			}),
			Handler:  confirm(waitForMessage),
			Snapshot: true,
		},
		{
			Name:        "browser_screenshot",
			Description: "Take a screenshot of the current page",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"fullPage": boolProp("Capture the full scrollable page instead of the viewport"),
			}),
			Handler: screenshotHandler,
		},
		{
			Name:        "browser_get_console_logs",
			Description: "Get the console logs from the browser",
			InputSchema: objectSchema(nil),
			Handler:     consoleLogsHandler,
		},
		{
			Name:        "browser_evaluate",
			Description: "Evaluate a JavaScript expression on the page and return its result",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"expression": stringProp("JavaScript expression to evaluate"),
			}, "expression"),
			Handler: passthrough,
		},
		{
			Name:        "browser_resize",
			Description: "Resize the browser window",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"width":  integerProp("Width of the browser window", 1),
				"height": integerProp("Height of the browser window", 1),
			}, "width", "height"),
			Handler: confirm(func(args map[string]any) string {
				return fmt.Sprintf("Resized window to %sx%s", argString(args, "width"), argString(args, "height"))
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_tab_list",
			Description: "List browser tabs",
			InputSchema: objectSchema(nil),
			Handler:     passthrough,
		},
		{
			Name:        "browser_tab_new",
			Description: "Open a new tab",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"url": stringProp("The URL to navigate to in the new tab. If not provided, the new tab will be blank"),
			}),
			Handler:  confirm(fixed("Opened a new tab")),
			Snapshot: true,
		},
		{
			Name:        "browser_tab_select",
			Description: "Select a tab by index",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"index": integerProp("The index of the tab to select", 0),
			}, "index"),
			Handler: confirm(func(args map[string]any) string {
				return "Selected tab " + argString(args, "index")
			}),
			Snapshot: true,
		},
		{
			Name:        "browser_tab_close",
			Description: "Close a tab. Closes the current tab when no index is given",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"index": integerProp("The index of the tab to close", 0),
			}),
			Handler:  confirm(fixed("Closed the tab")),
			Snapshot: true,
		},
	}
}

// RegisterCatalog registers every catalog tool with r.
func RegisterCatalog(r *Registry) error {
	for _, t := range Catalog() {
		if err := r.Register(t); err != nil {
			return err
		}
	}

	return nil
}

func fixed(message string) func(map[string]any) string {
	return func(map[string]any) string { return message }
}

func onElement(verb string) func(map[string]any) string {
	return func(args map[string]any) string {
		return fmt.Sprintf("%s %q", verb, argString(args, "element"))
	}
}

func waitForMessage(args map[string]any) string {
	switch {
	case argString(args, "text") != "":
		return fmt.Sprintf("Waited for %q to appear", argString(args, "text"))
	case argString(args, "textGone") != "":
		return fmt.Sprintf("Waited for %q to disappear", argString(args, "textGone"))
	default:
		return fmt.Sprintf("Waited for %s seconds", argString(args, "time"))
	}
}
