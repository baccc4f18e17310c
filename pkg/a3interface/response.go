package a3interface

import (
	"encoding/json"
	"fmt"
	"strings"
)

// formatDispatchResponse renders a handler result as a host array literal:
// ["ok"], ["ok", <value>] or ["error", "<message>"]. Values other than
// strings are encoded as JSON, which the host parses as nested arrays.
func formatDispatchResponse(command string, result any, err error) string {
	if err != nil {
		return errorResponse(err.Error())
	}
	switch v := result.(type) {
	case nil:
		return `["ok"]`
	case string:
		return fmt.Sprintf(`["ok", "%s"]`, escapeQuotes(v))
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(fmt.Sprintf("%s: encoding result: %v", command, err))
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}

func errorResponse(msg string) string {
	return fmt.Sprintf(`["error", "%s"]`, escapeQuotes(msg))
}

// escapeQuotes doubles quotes, the host's string escape.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// splitCommand separates a plain call of the form "command|arg1|arg2".
func splitCommand(input string) (string, []string) {
	parts := strings.Split(input, "|")
	return parts[0], parts[1:]
}
