// Package filter decides whether posts and comments may be narrated and
// rewrites their text where needed.
package filter

// Kind tags a Verdict
type Kind int

const (
	Accept Kind = iota
	Reject
	Rewrite
)

func (k Kind) String() string {
	switch k {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case Rewrite:
		return "rewrite"
	}
	return "unknown"
}

// Field names the candidate text a Rewrite replaces
type Field int

const (
	FieldText Field = iota
	FieldTitle
)

// Verdict is the result of a single stage
type Verdict struct {
	Kind   Kind
	Reason string
	// Permanent marks rejects whose cause cannot change over time.
	Permanent bool
	Field     Field
	Text      string
}

// Accepted returns an Accept verdict
func Accepted() Verdict {
	return Verdict{Kind: Accept}
}

// Rejected returns a Reject verdict
func Rejected(reason string, permanent bool) Verdict {
	return Verdict{Kind: Reject, Reason: reason, Permanent: permanent}
}

// Rewritten returns a Rewrite verdict replacing field with text
func Rewritten(field Field, text string) Verdict {
	return Verdict{Kind: Rewrite, Field: field, Text: text}
}
