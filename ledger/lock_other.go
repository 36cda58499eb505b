//go:build !unix

package ledger

// processAlive cannot check other processes here, so locks are never reclaimed
func processAlive(int) bool {
	return true
}
