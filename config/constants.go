package config

import "time"

// Comment Selection Defaults
const (
	// DefaultMinCommentLength is the shortest comment body (in characters) that can be narrated
	DefaultMinCommentLength = 1

	// DefaultMaxCommentLength is the longest comment body (in characters) that can be narrated
	DefaultMaxCommentLength = 500

	// DefaultMinComments is the minimum comment count a thread needs before its comments are considered
	DefaultMinComments = 20

	// DefaultMaxCommentsToScan caps the number of comment nodes visited per thread
	DefaultMaxCommentsToScan = 500

	// DefaultKeywordMatches is how many matching comments a keyword walk collects before stopping
	DefaultKeywordMatches = 5
)

// Story Mode Defaults
const (
	// DefaultStoryMinLength is the shortest post body accepted in story mode
	DefaultStoryMinLength = 30

	// DefaultStoryMaxLength is the longest post body accepted in story mode
	DefaultStoryMaxLength = 2000
)

// Segmentation Defaults
const (
	// DefaultMaxCharsPerSegment keeps each segment under the speech engine's input limit
	DefaultMaxCharsPerSegment = 250
)

// Iteration Defaults
const (
	DefaultTimesToRun       = 1
	DefaultRedoPerIteration = 0

	// DefaultFetchTimeout bounds every blocking upstream call
	DefaultFetchTimeout = 30 * time.Second

	// DefaultBackoff is the base delay before retrying after a transient fetch error
	DefaultBackoff = 500 * time.Millisecond
)

// Candidate Pool Defaults
const (
	// DefaultPoolLimit is the number of posts pulled from each listing pool
	DefaultPoolLimit = 100

	// DefaultSearchLimit is the number of results requested per keyword
	DefaultSearchLimit = 10
)

// DefaultSortPools is the order in which random mode walks listing pools
var DefaultSortPools = []string{"hot", "new", "top"}

// ValidSortPools lists the listing sorts the upstream understands
var ValidSortPools = map[string]bool{
	"hot":    true,
	"new":    true,
	"top":    true,
	"rising": true,
}
