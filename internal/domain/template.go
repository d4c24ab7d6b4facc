package domain

// Template is a reusable message skeleton. Title and Body may contain
// {variable} placeholders substituted at send time. Templates are immutable
// after registration and live for the process lifetime.
type Template struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Priority  string   `json:"priority"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Channels  []string `json:"channels"`
	Variables []string `json:"variables,omitempty"`
}
