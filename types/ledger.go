package types

import "time"

// Namespace names one of the two disjoint ledger id sets
type Namespace string

const (
	// NamespaceUsed holds ids that were already narrated
	NamespaceUsed Namespace = "used"
	// NamespaceUnsuitable holds ids that were permanently disqualified
	NamespaceUnsuitable Namespace = "unsuitable"
)

// Valid reports whether ns is a known namespace
func (ns Namespace) Valid() bool {
	return ns == NamespaceUsed || ns == NamespaceUnsuitable
}

// Record is one persisted ledger entry
type Record struct {
	Namespace Namespace `json:"kind"`
	Source    string    `json:"source"`
	ID        string    `json:"id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
