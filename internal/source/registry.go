// Package source owns the set of configured sources: their module-style
// identifiers, the selection syntax used on the command line, and the HTML
// listing adapter that turns a source page into candidate items.
package source

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// Config describes one listing page and how to read items from it.
type Config struct {
	ID                 string `mapstructure:"id"`
	URL                string `mapstructure:"url"`
	ItemSelector       string `mapstructure:"item_selector"`
	NameSelector       string `mapstructure:"name_selector"`
	LinkSelector       string `mapstructure:"link_selector"`
	DateSelector       string `mapstructure:"date_selector"`
	DateLayout         string `mapstructure:"date_layout"`
	DocketSelector     string `mapstructure:"docket_selector"`
	CitationSelector   string `mapstructure:"citation_selector"`
	PrecedentialStatus string `mapstructure:"precedential_status"`
	NonMonotonic       bool   `mapstructure:"non_monotonic"`
}

// Registry indexes source configs by id.
type Registry struct {
	byID map[string]Config
	ids  []string
}

// NewRegistry validates cfgs and builds a Registry.
func NewRegistry(cfgs []Config) (*Registry, error) {
	r := &Registry{byID: make(map[string]Config, len(cfgs))}
	for i, cfg := range cfgs {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, dup := r.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("sources[%d]: duplicate id %q", i, cfg.ID)
		}
		r.byID[cfg.ID] = cfg
		r.ids = append(r.ids, cfg.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

func validate(cfg Config) error {
	switch {
	case strings.TrimSpace(cfg.ID) == "":
		return fmt.Errorf("id is required")
	case strings.ContainsAny(cfg.ID, "*?[]"):
		return fmt.Errorf("id %q must not contain glob characters", cfg.ID)
	case strings.TrimSpace(cfg.URL) == "":
		return fmt.Errorf("%s: url is required", cfg.ID)
	case cfg.ItemSelector == "":
		return fmt.Errorf("%s: item_selector is required", cfg.ID)
	case cfg.LinkSelector == "":
		return fmt.Errorf("%s: link_selector is required", cfg.ID)
	case cfg.DateSelector == "":
		return fmt.Errorf("%s: date_selector is required", cfg.ID)
	}
	return nil
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Get returns the config for id.
func (r *Registry) Get(id string) (Config, bool) {
	cfg, ok := r.byID[id]
	return cfg, ok
}

// NonMonotonic reports whether the source's listing dates may be out of
// order.
func (r *Registry) NonMonotonic(id string) bool {
	return r.byID[id].NonMonotonic
}

// Select resolves selectors to source ids. Each selector is a full id, a
// dotted prefix of ids (package or group), or a glob where `*` matches
// a single dotted segment. Results keep first-match order without
// duplicates. A selector matching nothing is a setup error.
func (r *Registry) Select(selectors []string) ([]string, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("%w: no sources selected", crawler.ErrSetup)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, raw := range selectors {
		sel := strings.TrimSpace(raw)
		if sel == "" {
			continue
		}
		matched := 0
		for _, id := range r.ids {
			ok, err := matches(sel, id)
			if err != nil {
				return nil, fmt.Errorf("%w: bad selector %q: %w", crawler.ErrSetup, sel, err)
			}
			if !ok {
				continue
			}
			matched++
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		if matched == 0 {
			return nil, fmt.Errorf("%w: %w: %q", crawler.ErrSetup, crawler.ErrUnknownSource, sel)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no sources selected", crawler.ErrSetup)
	}
	return out, nil
}

func matches(selector, id string) (bool, error) {
	if !strings.ContainsAny(selector, "*?[") {
		return id == selector || strings.HasPrefix(id, selector+"."), nil
	}
	pattern := strings.ReplaceAll(selector, ".", "/")
	segments := strings.Split(id, ".")
	for n := len(segments); n > 0; n-- {
		ok, err := path.Match(pattern, strings.Join(segments[:n], "/"))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Key derives the short source key from a module-style id: the last dotted
// segment up to its first underscore, so
// "opinions.united_states.federal.ca9_u" becomes "ca9".
func Key(id string) string {
	last := id
	if i := strings.LastIndex(id, "."); i >= 0 {
		last = id[i+1:]
	}
	if i := strings.Index(last, "_"); i > 0 {
		last = last[:i]
	}
	return last
}
