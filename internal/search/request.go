package search

import (
	"net/url"
	"strconv"
	"strings"
)

// Request is a set of optional catalog filters. Nil fields impose no
// constraint.
type Request struct {
	Query     *string  `json:"query,omitempty"`
	Title     *string  `json:"title,omitempty"`
	Author    *string  `json:"author,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
	RatingMin *float64 `json:"rating_min,omitempty"`
	LevelMin  *float64 `json:"level_min,omitempty"`
	LevelMax  *float64 `json:"level_max,omitempty"`
}

// IsEmpty reports whether the request has no filters at all.
func (r Request) IsEmpty() bool {
	return r.Query == nil && r.Title == nil && r.Author == nil &&
		len(r.Subjects) == 0 && r.RatingMin == nil && r.LevelMin == nil && r.LevelMax == nil
}

// ParseRequest reads search filters from query parameters. Blank values are
// treated as absent and numbers that fail to parse impose no constraint.
func ParseRequest(values url.Values) Request {
	return Request{
		Query:     optionalString(values.Get("query")),
		Title:     optionalString(values.Get("title")),
		Author:    optionalString(values.Get("author")),
		Subjects:  parseSubjects(values["subjects"]),
		RatingMin: optionalFloat(values.Get("ratingMin")),
		LevelMin:  optionalFloat(values.Get("levelMin")),
		LevelMax:  optionalFloat(values.Get("levelMax")),
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Subjects may repeat (?subjects=a&subjects=b) or be comma separated.
func parseSubjects(raw []string) []string {
	var subjects []string
	for _, value := range raw {
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				subjects = append(subjects, s)
			}
		}
	}
	return subjects
}
