package httpclient

import "strings"

// Rule routes request paths that begin with Prefix to BaseURL. With
// StripPrefix set, the prefix is removed before the call goes out.
type Rule struct {
	Prefix      string
	BaseURL     string
	StripPrefix bool
}

// Router resolves a request path to a base URL and a rewritten path, driven
// by a small ordered rule list. It is a pure function over its rules and
// needs no network to test.
type Router struct {
	rules    []Rule
	fallback string
}

// NewRouter creates a router that answers fallback for any path no rule
// matches. Rules are evaluated in order; the first matching prefix wins.
func NewRouter(fallback string, rules ...Rule) Router {
	return Router{rules: rules, fallback: fallback}
}

// Resolve returns the base URL and the (possibly rewritten) path for a
// request path.
func (r Router) Resolve(path string) (baseURL, rewritten string) {
	for _, rule := range r.rules {
		if !strings.HasPrefix(path, rule.Prefix) {
			continue
		}
		rewritten = path
		if rule.StripPrefix {
			rewritten = strings.TrimPrefix(path, rule.Prefix)
			if rewritten == "" || rewritten[0] != '/' {
				rewritten = "/" + rewritten
			}
		}
		return rule.BaseURL, rewritten
	}
	return r.fallback, path
}
