package intent

// Intent classifies what a user turn is asking for.
type Intent string

const (
	Greeting        Intent = "greeting"
	ChitChat        Intent = "chit-chat"
	DocumentSearch  Intent = "document-search"
	StructuredQuery Intent = "structured-query"
	WebSearch       Intent = "web-search"
	Weather         Intent = "weather"
	MultiTool       Intent = "multi-tool"
	Unknown         Intent = "unknown"

	// MaxReached is never produced by classification. The agent loop sets
	// it when the iteration cap forces a final synthesis.
	MaxReached Intent = "max_reached"
)

// valid is the closed set a classifier may produce.
var valid = map[Intent]bool{
	Greeting:        true,
	ChitChat:        true,
	DocumentSearch:  true,
	StructuredQuery: true,
	WebSearch:       true,
	Weather:         true,
	MultiTool:       true,
	Unknown:         true,
}

// Coerce maps arbitrary model output onto the closed enum. Anything
// outside it becomes Unknown.
func Coerce(s string) Intent {
	i := Intent(s)
	if valid[i] {
		return i
	}
	return Unknown
}

// ShortCircuits reports whether the intent is answered directly without
// dispatching tools.
func (i Intent) ShortCircuits() bool {
	return i == Greeting || i == ChitChat
}

// Decision is the outcome of classifying one turn.
type Decision struct {
	Intent Intent   `json:"intent"`
	Tools  []string `json:"tools"`
	// Reply is only set for short-circuit intents.
	Reply string `json:"reply,omitempty"`
}

// DefaultTools maps an intent to the tools it dispatches.
func DefaultTools(i Intent) []string {
	switch i {
	case DocumentSearch, Unknown:
		return []string{"document-search"}
	case StructuredQuery:
		return []string{"structured-query"}
	case WebSearch:
		return []string{"web-search"}
	case Weather:
		return []string{"weather"}
	default:
		return nil
	}
}
