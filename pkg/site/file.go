package site

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/locator"
)

// fileDefinition is the YAML layout of a site file:
//
//	name: dice
//	login_url: https://www.dice.com/dashboard/login
//	authenticated_urls: ["*home-feed*", "*dashboard*"]
//	anonymous_urls: ["*/login*"]
//	locators:
//	  email field:
//	    - css: input#email
//	    - role: textbox
//	      name: Email
//	  continue:
//	    - text: Continue
//	      tag: button
//
// Roles missing from locators inherit the built-in profile named by
// extends (default: dice).
type fileDefinition struct {
	Name              string                    `yaml:"name"`
	Extends           string                    `yaml:"extends"`
	LoginURL          string                    `yaml:"login_url"`
	AuthenticatedURLs []string                  `yaml:"authenticated_urls"`
	AnonymousURLs     []string                  `yaml:"anonymous_urls"`
	Locators          map[string][]fileStrategy `yaml:"locators"`
}

type fileStrategy struct {
	CSS  string `yaml:"css,omitempty"`
	Text string `yaml:"text,omitempty"`
	Tag  string `yaml:"tag,omitempty"`
	Role string `yaml:"role,omitempty"`
	Name string `yaml:"name,omitempty"`
}

func (s fileStrategy) selector() (browser.Selector, error) {
	set := 0
	for _, v := range []string{s.CSS, s.Text, s.Role} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of css, text or role must be set")
	}

	switch {
	case s.CSS != "":
		return browser.CSS{Pattern: s.CSS}, nil
	case s.Text != "":
		return browser.Text{Tag: s.Tag, Text: s.Text}, nil
	default:
		return browser.Role{Role: s.Role, Name: s.Name}, nil
	}
}

// Parse builds a Profile from YAML.
func Parse(data []byte) (*Profile, error) {
	var raw fileDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("site: failed to decode site file: %w", err)
	}

	baseName := raw.Extends
	if baseName == "" {
		baseName = DiceName
	}
	base, ok := builtinDefinition(baseName)
	if !ok {
		return nil, fmt.Errorf("site: unknown base profile %q", baseName)
	}

	def := base
	if raw.Name != "" {
		def.Name = raw.Name
	}
	if raw.LoginURL != "" {
		def.LoginURL = raw.LoginURL
	}
	if len(raw.AuthenticatedURLs) > 0 {
		def.AuthenticatedURLs = raw.AuthenticatedURLs
	}
	if raw.AnonymousURLs != nil {
		def.AnonymousURLs = raw.AnonymousURLs
	}

	def.Locators = base.Locators.Clone()
	for role, strategies := range raw.Locators {
		spec := make(locator.Spec, 0, len(strategies))
		for i, st := range strategies {
			sel, err := st.selector()
			if err != nil {
				return nil, fmt.Errorf("site: locators[%q][%d]: %w", role, i, err)
			}
			spec = append(spec, sel)
		}
		def.Locators[locator.Role(role)] = spec
	}

	return New(def)
}

// Load reads and parses a site file from fs.
func Load(fs afero.Fs, path string) (*Profile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("site: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

func builtinDefinition(name string) (Definition, bool) {
	switch name {
	case DiceName:
		return DiceDefinition(), true
	default:
		return Definition{}, false
	}
}
