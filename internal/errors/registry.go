package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/vstore/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Scenario file not found",
		Detail:   "The scenario file does not exist or cannot be opened.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Scenario file is not valid YAML",
		Detail:   "The scenario file could not be parsed.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid initial state",
		Detail:   "The state section must be a YAML mapping of plain values.",
		DocURL:   docBase + "E102",
	},

	// ============================================
	// Scenario Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryScenario,
		Message:  "Invalid binding",
		Detail:   "A binding needs a unique name and at least one read path.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryScenario,
		Message:  "Unknown binding protocol",
		Detail:   "Bindings use one of the immediate, synchronized or deferred protocols.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryScenario,
		Message:  "Invalid path",
		Detail:   "Paths use the $.a.b[0] form; the leading $ is optional.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryScenario,
		Message:  "Invalid step",
		Detail:   "Each step has exactly one operation: set, delete, append, increment, merge, patch or wait.",
		DocURL:   docBase + "E123",
	},
	"E124": {
		Category: CategoryScenario,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax such as 250ms or 1s.",
		DocURL:   docBase + "E124",
	},
	"E125": {
		Category: CategoryScenario,
		Message:  "Invalid devtools address",
		Detail:   "The devtools address must be host:port.",
		DocURL:   docBase + "E125",
	},

	// ============================================
	// Mutation Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryMutation,
		Message:  "Step failed",
		Detail:   "The step's mutation failed; nothing was published.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryMutation,
		Message:  "Invalid JSON patch",
		Detail:   "The patch is not a valid RFC 6902 document.",
		DocURL:   docBase + "E141",
	},

	// ============================================
	// Devtools Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryDevtools,
		Message:  "Devtools server failed",
		Detail:   "The devtools HTTP server could not start or stopped unexpectedly.",
		DocURL:   docBase + "E160",
	},
	"E161": {
		Category: CategoryDevtools,
		Message:  "State file watch failed",
		Detail:   "The watched state file could not be observed or reloaded.",
		DocURL:   docBase + "E161",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
