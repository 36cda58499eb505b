package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// LoadConstraints builds a ConstraintSet from the defaults, the YAML file at
// path (skipped when path is empty) and STORYBOT_* environment overrides, in
// that order. The result is validated before it is returned.
func LoadConstraints(path string) (ConstraintSet, error) {
	cs := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ConstraintSet{}, fmt.Errorf("read constraints file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cs); err != nil {
			return ConstraintSet{}, fmt.Errorf("parse constraints file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cs); err != nil {
		return ConstraintSet{}, fmt.Errorf("parse env: %w", err)
	}

	cs.Subreddits = normalizeSubreddits(cs.Subreddits)
	cs.PostIDs = splitPlus(cs.PostIDs)
	cs.Keywords = trimAll(cs.Keywords)

	if err := cs.Validate(); err != nil {
		return ConstraintSet{}, err
	}
	return cs, nil
}

// normalizeSubreddits accepts "r/name", "name" and "a+b" forms
func normalizeSubreddits(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range splitPlus(in) {
		s = strings.TrimPrefix(s, "/")
		if strings.HasPrefix(strings.ToLower(s), "r/") {
			s = s[2:]
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitPlus(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, "+") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Override returns a copy of c whose candidate source is replaced when any of
// subreddits, postIDs or keywords is non-empty. A positive timesToRun replaces
// TimesToRun. The copy is validated.
func (c ConstraintSet) Override(subreddits, postIDs, keywords []string, timesToRun int) (ConstraintSet, error) {
	out := c
	if len(subreddits)+len(postIDs)+len(keywords) > 0 {
		out.Subreddits = normalizeSubreddits(subreddits)
		out.PostIDs = splitPlus(postIDs)
		out.Keywords = trimAll(keywords)
	}
	if timesToRun > 0 {
		out.TimesToRun = timesToRun
	}
	if err := out.Validate(); err != nil {
		return ConstraintSet{}, err
	}
	return out, nil
}
