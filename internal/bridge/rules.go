package bridge

import (
	"fmt"
	"regexp"
	"slices"
)

// Rules decide which notifications are forwarded and how titles look.
type Rules struct {
	TitleFormat string
	// Whitelist, when non-empty, admits only these application ids and
	// Blacklist is ignored.
	Whitelist []int64
	Blacklist []int64
	// Include, when non-empty, requires at least one match on the body.
	// Any Exclude match drops the notification.
	Include []string
	Exclude []string
}

type compiled struct {
	titleFormat string
	whitelist   []int64
	blacklist   []int64
	include     []*regexp.Regexp
	exclude     []*regexp.Regexp
}

func (r Rules) compile() (*compiled, error) {
	c := &compiled{
		titleFormat: r.TitleFormat,
		whitelist:   slices.Clone(r.Whitelist),
		blacklist:   slices.Clone(r.Blacklist),
	}
	var err error
	if c.include, err = compileAll("include", r.Include); err != nil {
		return nil, err
	}
	if c.exclude, err = compileAll("exclude", r.Exclude); err != nil {
		return nil, err
	}
	return c, nil
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bridge: %s pattern %q: %w", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// appReason returns a non-empty reason when the application is filtered out.
func (c *compiled) appReason(appID int64) string {
	if len(c.whitelist) > 0 {
		if !slices.Contains(c.whitelist, appID) {
			return "not whitelisted"
		}
		return ""
	}
	if slices.Contains(c.blacklist, appID) {
		return "blacklisted"
	}
	return ""
}

func (c *compiled) bodyReason(body string) string {
	if len(c.include) > 0 && !slices.ContainsFunc(c.include, func(re *regexp.Regexp) bool { return re.MatchString(body) }) {
		return "no include pattern matched"
	}
	for _, re := range c.exclude {
		if re.MatchString(body) {
			return "matched exclude pattern " + re.String()
		}
	}
	return ""
}

// Validate reports the first pattern that does not compile.
func (r Rules) Validate() error {
	_, err := r.compile()
	return err
}
