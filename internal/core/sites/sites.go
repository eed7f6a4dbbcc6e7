// Package sites holds the per-engine markup profiles: which anchors are
// quotes, which tags carry which styles and which boards embed links.
package sites

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"Threadmark/internal/core/autolink"
	"Threadmark/internal/core/markup"
	"Threadmark/internal/core/posts"
)

// Site is a compiled profile.
type Site struct {
	profile Profile
	parser  *markup.Parser
	boards  map[string]posts.Board
}

// Name returns the profile name.
func (s *Site) Name() string { return s.profile.Name }

// Parser returns the site's markup parser.
func (s *Site) Parser() *markup.Parser { return s.parser }

// Context builds the parse context for a post on this site.
func (s *Site) Context(board string, threadNo, postNo int64) markup.Context {
	return markup.Context{Host: s.profile.Host, Board: board, ThreadNo: threadNo, PostNo: postNo}
}

// Board returns the flags for a board code. Unlisted boards get the
// profile-wide defaults.
func (s *Site) Board(code string) posts.Board {
	if b, ok := s.boards[code]; ok {
		return b
	}
	return posts.Board{Code: code, EmbedsEnabled: s.profile.Embeds, ImageLinks: s.profile.ImageLinks}
}

// Registry maps profile names to compiled sites.
type Registry struct {
	sites  map[string]*Site
	logger *slog.Logger
}

// NewRegistry compiles profiles. A later profile replaces an earlier one
// with the same name, so file profiles override the built-in ones.
func NewRegistry(profiles []Profile, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{sites: make(map[string]*Site), logger: logger}
	scanner := autolink.NewScanner()

	for _, p := range profiles {
		site, err := compile(p, scanner, logger)
		if err != nil {
			return nil, err
		}
		if _, exists := r.sites[site.Name()]; exists {
			logger.Info("[SITES] Profile overridden", "site", site.Name())
		}
		r.sites[site.Name()] = site
	}
	return r, nil
}

// Load reads profiles from a YAML file and layers them over the built-in
// ones. An empty path loads only the built-ins.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profiles := Builtin()
	if path == "" {
		return NewRegistry(profiles, logger)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	var file struct {
		Sites []Profile `yaml:"sites"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	logger.Info("[SITES] Loaded profiles", "path", path, "count", len(file.Sites))
	return NewRegistry(append(profiles, file.Sites...), logger)
}

// Lookup returns the site registered under name.
func (r *Registry) Lookup(name string) (*Site, error) {
	site, ok := r.sites[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
	}
	return site, nil
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func compile(p Profile, scanner *autolink.Scanner, logger *slog.Logger) (*Site, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.Name = strings.ToLower(p.Name)

	patterns, err := p.compilePatterns()
	if err != nil {
		return nil, err
	}

	rules := markup.NewRuleTable(markup.DefaultRules()...)
	for _, rule := range p.Rules {
		rules.Add(rule)
	}

	boards := make(map[string]posts.Board, len(p.Boards))
	for _, b := range p.Boards {
		boards[b.Code] = b
	}

	parser := markup.NewParser(rules, markup.NewResolver(patterns),
		markup.WithScanner(scanner),
		markup.WithLogger(logger.With("site", p.Name)),
	)
	return &Site{profile: p, parser: parser, boards: boards}, nil
}
