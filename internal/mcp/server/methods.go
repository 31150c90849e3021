package server

// validMCPMethods whitelists the MCP 2025-06-18 method and notification
// names this server recognizes. A method outside this set is rejected
// with CodeMethodNotFound before it reaches routing.
var validMCPMethods = map[string]bool{
	"initialize":                true,
	"initialized":               true,
	"notifications/initialized": true,
	"ping":                      true,

	"tools/list": true,
	"tools/call": true,

	"resources/list":        true,
	"resources/read":        true,
	"resources/subscribe":   true,
	"resources/unsubscribe": true,

	"prompts/list": true,
	"prompts/get":  true,

	"completion/complete": true,

	"logging/setLevel": true,

	"notifications/cancelled":              true,
	"notifications/progress":               true,
	"notifications/message":                true,
	"notifications/resources/updated":      true,
	"notifications/resources/list_changed": true,
	"notifications/tools/list_changed":     true,
	"notifications/prompts/list_changed":   true,

	"sampling/createMessage": true,

	"roots/list":                       true,
	"notifications/roots/list_changed": true,
}

// isValidMCPMethod reports whether method is a recognized MCP method or
// notification name. Method names are case-sensitive.
func isValidMCPMethod(method string) bool {
	return validMCPMethods[method]
}
