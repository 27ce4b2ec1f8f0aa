package model

// Entry is one catalog row as delivered by a catalog reader.
//
// Type and Element are kept as catalog text so that Load can report unknown
// names with the row's line. Min, Max and Default are literals in the
// signal's type; the empty string means "not declared".
type Entry struct {
	Path        string
	ID          uint32
	HasID       bool
	Element     string
	Type        string
	Unit        string
	Min         string
	Max         string
	Description string
	Enum        []string
	Default     string

	// Line is the source line, used in load errors. 0 if unknown.
	Line int
}
