package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Pack is a user-supplied extension to the built-in rule table. Packs
// only ever add signals: extra text patterns per category and extra
// autocomplete tokens. They cannot weaken or remove built-ins, so a
// broken pack can at worst over-detect.
type Pack struct {
	Version  string              `yaml:"version"`
	Patterns map[string][]string `yaml:"patterns"`
	Tokens   []string            `yaml:"autocomplete_tokens"`
}

// LoadPack reads a YAML pack from path and merges it into the
// classifier. A missing file is not an error; a malformed file or
// pattern is, since silently ignoring a typo'd pack would be worse
// than failing loudly at startup.
func (c *Classifier) LoadPack(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return fmt.Errorf("parse pack %s: %w", path, err)
	}
	return c.MergePack(pack)
}

// MergePack applies a parsed pack to the classifier.
func (c *Classifier) MergePack(pack Pack) error {
	for group, patterns := range pack.Patterns {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("pattern %q in group %q: %w", p, group, err)
			}
			compiled = append(compiled, re)
		}
		c.extendGroup(group, compiled)
	}
	c.tokens = append(c.tokens, pack.Tokens...)
	return nil
}
