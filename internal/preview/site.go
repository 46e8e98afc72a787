package preview

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// slugPattern accepts the path component of a demo page. Slashes are
// excluded so every page stays routable under /pages/:slug.
var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Page is one demo host page. Title, OGTitle and Description feed the meta
// tags the term resolver reads back out of the rendered document.
type Page struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	OGTitle     string `yaml:"og_title"`
	Description string `yaml:"description"`
	Body        string `yaml:"body"`
}

// Site is a collection of demo pages served by the preview server.
type Site struct {
	Name  string `yaml:"name"`
	Pages []Page `yaml:"pages"`
}

// DefaultSite returns the built-in demo pages used when no site file is
// configured.
func DefaultSite() Site {
	return Site{
		Name: "gisco preview",
		Pages: []Page{
			{
				Slug:        "hello-world",
				Title:       "Hello World",
				OGTitle:     "Hello World | gisco preview",
				Description: "A first post to exercise the comment widget.",
				Body:        "This page embeds the widget with the default pathname mapping.",
			},
			{
				Slug:        "release-notes",
				Title:       "Release Notes",
				Description: "Changelog-style page with a different discussion term.",
				Body:        "Resize the window or post a comment to watch the frame adjust.",
			},
			{
				Slug:        "about",
				Title:       "About",
				Body:        "A minimal page without Open Graph metadata.",
			},
		},
	}
}

// LoadSite reads a site definition from a YAML file.
func LoadSite(path string) (Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("read site file: %w", err)
	}
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return Site{}, fmt.Errorf("parse site file: %w", err)
	}
	if err := site.normalize(); err != nil {
		return Site{}, err
	}
	return site, nil
}

// Page returns the page registered under slug.
func (s Site) Page(slug string) (Page, bool) {
	for _, p := range s.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

func (s *Site) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = "gisco preview"
	}
	if len(s.Pages) == 0 {
		return fmt.Errorf("site defines no pages")
	}

	seen := make(map[string]struct{}, len(s.Pages))
	for i := range s.Pages {
		p := &s.Pages[i]
		p.Slug = strings.TrimSpace(p.Slug)
		p.Title = strings.TrimSpace(p.Title)
		if p.Slug == "" {
			return fmt.Errorf("page %d is missing a slug", i)
		}
		if !slugPattern.MatchString(p.Slug) {
			return fmt.Errorf("invalid page slug %q", p.Slug)
		}
		if _, dup := seen[p.Slug]; dup {
			return fmt.Errorf("duplicate page slug %q", p.Slug)
		}
		seen[p.Slug] = struct{}{}
		if p.Title == "" {
			p.Title = p.Slug
		}
	}
	return nil
}
