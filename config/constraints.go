package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ConstraintSet holds every tunable of a selection run.
// It is loaded once, validated, and never mutated while a run is in progress.
type ConstraintSet struct {
	// Source selection
	Subreddits       []string `yaml:"subreddits" env:"STORYBOT_SUBREDDITS" envSeparator:","`
	PostIDs          []string `yaml:"post_ids" env:"STORYBOT_POST_IDS" envSeparator:","`
	Keywords         []string `yaml:"keywords" env:"STORYBOT_KEYWORDS" envSeparator:","`
	KeywordWholeWord bool     `yaml:"keyword_whole_word" env:"STORYBOT_KEYWORD_WHOLE_WORD"`
	KeywordMatches   int      `yaml:"keyword_matches" env:"STORYBOT_KEYWORD_MATCHES"`
	SortPools        []string `yaml:"sort_pools" env:"STORYBOT_SORT_POOLS" envSeparator:","`
	PoolLimit        int      `yaml:"pool_limit" env:"STORYBOT_POOL_LIMIT"`
	SearchLimit      int      `yaml:"search_limit" env:"STORYBOT_SEARCH_LIMIT"`

	// Comment bounds
	MinCommentLength   int `yaml:"min_comment_length" env:"STORYBOT_MIN_COMMENT_LENGTH"`
	MaxCommentLength   int `yaml:"max_comment_length" env:"STORYBOT_MAX_COMMENT_LENGTH"`
	MinComments        int `yaml:"min_comments" env:"STORYBOT_MIN_COMMENTS"`
	MaxCommentsForPost int `yaml:"max_comments_for_post" env:"STORYBOT_MAX_COMMENTS_FOR_POST"`
	MaxCommentsToScan  int `yaml:"max_comments_to_scan" env:"STORYBOT_MAX_COMMENTS_TO_SCAN"`

	// Content filters
	Language       string `yaml:"language" env:"STORYBOT_LANGUAGE"`
	AllowNSFW      bool   `yaml:"allow_nsfw" env:"STORYBOT_ALLOW_NSFW"`
	SwearWordsPath string `yaml:"swear_words_path" env:"STORYBOT_SWEAR_WORDS_PATH"`

	// Story mode
	StoryMode      bool `yaml:"story_mode" env:"STORYBOT_STORY_MODE"`
	StoryMinLength int  `yaml:"story_min_length" env:"STORYBOT_STORY_MIN_LENGTH"`
	StoryMaxLength int  `yaml:"story_max_length" env:"STORYBOT_STORY_MAX_LENGTH"`

	// Segmentation
	MaxWordsPerSegment int `yaml:"max_words_per_segment" env:"STORYBOT_MAX_WORDS_PER_SEGMENT"`
	MaxCharsPerSegment int `yaml:"max_chars_per_segment" env:"STORYBOT_MAX_CHARS_PER_SEGMENT"`

	// Iterations
	TimesToRun          int           `yaml:"times_to_run" env:"STORYBOT_TIMES_TO_RUN"`
	RedoPerIteration    int           `yaml:"redo_per_iteration" env:"STORYBOT_REDO_PER_ITERATION"`
	AllowRepeatSpecific bool          `yaml:"allow_repeat_specific" env:"STORYBOT_ALLOW_REPEAT_SPECIFIC"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout" env:"STORYBOT_FETCH_TIMEOUT"`
	Backoff             time.Duration `yaml:"backoff" env:"STORYBOT_BACKOFF"`
}

// Defaults returns a ConstraintSet populated with the package defaults
func Defaults() ConstraintSet {
	return ConstraintSet{
		KeywordMatches:     DefaultKeywordMatches,
		SortPools:          append([]string(nil), DefaultSortPools...),
		PoolLimit:          DefaultPoolLimit,
		SearchLimit:        DefaultSearchLimit,
		MinCommentLength:   DefaultMinCommentLength,
		MaxCommentLength:   DefaultMaxCommentLength,
		MinComments:        DefaultMinComments,
		MaxCommentsToScan:  DefaultMaxCommentsToScan,
		StoryMinLength:     DefaultStoryMinLength,
		StoryMaxLength:     DefaultStoryMaxLength,
		MaxCharsPerSegment: DefaultMaxCharsPerSegment,
		TimesToRun:         DefaultTimesToRun,
		RedoPerIteration:   DefaultRedoPerIteration,
		FetchTimeout:       DefaultFetchTimeout,
		Backoff:            DefaultBackoff,
	}
}

// ConfigurationError reports every problem found while validating a ConstraintSet
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the ConstraintSet and returns a *ConfigurationError describing
// every invalid field, or nil.
func (c ConstraintSet) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Subreddits) == 0 && len(c.PostIDs) == 0 {
		add("at least one subreddit or post id is required")
	}
	for _, s := range c.SortPools {
		if !ValidSortPools[s] {
			add("unknown sort pool %q", s)
		}
	}
	if c.PoolLimit < 1 {
		add("pool_limit must be at least 1, got %d", c.PoolLimit)
	}
	if c.SearchLimit < 1 {
		add("search_limit must be at least 1, got %d", c.SearchLimit)
	}
	if c.KeywordMatches < 1 {
		add("keyword_matches must be at least 1, got %d", c.KeywordMatches)
	}

	if c.MinCommentLength < 0 {
		add("min_comment_length must not be negative, got %d", c.MinCommentLength)
	}
	if c.MaxCommentLength < 1 {
		add("max_comment_length must be at least 1, got %d", c.MaxCommentLength)
	}
	if c.MinCommentLength > c.MaxCommentLength {
		add("min_comment_length (%d) exceeds max_comment_length (%d)", c.MinCommentLength, c.MaxCommentLength)
	}
	if c.MinComments < 0 {
		add("min_comments must not be negative, got %d", c.MinComments)
	}
	if c.MaxCommentsForPost < 0 {
		add("max_comments_for_post must not be negative, got %d", c.MaxCommentsForPost)
	}
	if c.MaxCommentsForPost > 0 && c.MaxCommentsForPost < c.MinComments {
		add("max_comments_for_post (%d) is below min_comments (%d)", c.MaxCommentsForPost, c.MinComments)
	}
	if c.MaxCommentsToScan < 0 {
		add("max_comments_to_scan must not be negative, got %d", c.MaxCommentsToScan)
	}

	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			add("language %q is not a valid language tag", c.Language)
		}
	}

	if c.StoryMinLength < 0 {
		add("story_min_length must not be negative, got %d", c.StoryMinLength)
	}
	if c.StoryMinLength > c.StoryMaxLength {
		add("story_min_length (%d) exceeds story_max_length (%d)", c.StoryMinLength, c.StoryMaxLength)
	}

	if c.MaxWordsPerSegment < 0 {
		add("max_words_per_segment must not be negative, got %d", c.MaxWordsPerSegment)
	}
	if c.MaxCharsPerSegment < 0 {
		add("max_chars_per_segment must not be negative, got %d", c.MaxCharsPerSegment)
	}

	if c.TimesToRun < 1 {
		add("times_to_run must be at least 1, got %d", c.TimesToRun)
	}
	if c.RedoPerIteration < 0 {
		add("redo_per_iteration must not be negative, got %d", c.RedoPerIteration)
	}
	if c.FetchTimeout <= 0 {
		add("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.Backoff < 0 {
		add("backoff must not be negative, got %s", c.Backoff)
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// Attempts is the number of attempts each iteration may spend
func (c ConstraintSet) Attempts() int {
	return c.RedoPerIteration + 1
}
