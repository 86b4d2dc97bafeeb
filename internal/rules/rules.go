// Package rules holds the domain rule tables: the priority-source
// lexicon, source labels, boost patterns and gate templates. Rules are
// loaded once at startup from YAML and are immutable afterwards;
// components receive the compiled Ruleset by injection.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type File struct {
	Sources       []Source       `yaml:"sources"`
	BoostRules    []BoostRule    `yaml:"boost_rules"`
	GateTemplates []GateTemplate `yaml:"gate_templates"`
}

// Source describes one document collection.
type Source struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Priority bool     `yaml:"priority"`
	Current  bool     `yaml:"current"`
	Terms    []string `yaml:"terms"`
}

// BoostRule rewrites per-source weights when its query pattern matches
// and the optional exclude pattern does not. Boost keys are source-name
// prefixes; the longest matching prefix wins.
type BoostRule struct {
	Tag     string             `yaml:"tag"`
	Pattern string             `yaml:"pattern"`
	Exclude string             `yaml:"exclude,omitempty"`
	Boosts  map[string]float64 `yaml:"boosts"`
}

// GateTemplate describes a question category that must not be answered
// until its required fields are collected.
type GateTemplate struct {
	Category string      `yaml:"category"`
	Trigger  string      `yaml:"trigger"`
	Fields   []GateField `yaml:"fields"`
}

type GateField struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Prompt  string `yaml:"prompt"`
}

// Ruleset is the compiled, immutable form consumed by the pipeline.
type Ruleset struct {
	sources   []Source
	byName    map[string]Source
	boosts    []compiledBoost
	templates []CompiledTemplate
}

type compiledBoost struct {
	tag     string
	pattern *regexp.Regexp
	exclude *regexp.Regexp
	boosts  map[string]float64
}

type CompiledTemplate struct {
	Category string
	Trigger  *regexp.Regexp
	Fields   []CompiledField
}

type CompiledField struct {
	Name    string
	Pattern *regexp.Regexp
	Prompt  string
}

// Load reads and compiles a rules file. An empty path yields the built-in
// default rules.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Compile(Defaults())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	return Compile(file)
}

// Compile validates the rule tables and compiles all patterns.
func Compile(file File) (*Ruleset, error) {
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("rules: at least one source is required")
	}

	rs := &Ruleset{
		sources: file.Sources,
		byName:  make(map[string]Source, len(file.Sources)),
	}
	for _, src := range file.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("rules: source with empty name")
		}
		if _, dup := rs.byName[src.Name]; dup {
			return nil, fmt.Errorf("rules: duplicate source %q", src.Name)
		}
		rs.byName[src.Name] = src
	}

	for _, rule := range file.BoostRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: boost rule %q pattern: %w", rule.Tag, err)
		}
		var exclude *regexp.Regexp
		if rule.Exclude != "" {
			exclude, err = regexp.Compile(rule.Exclude)
			if err != nil {
				return nil, fmt.Errorf("rules: boost rule %q exclude: %w", rule.Tag, err)
			}
		}
		rs.boosts = append(rs.boosts, compiledBoost{
			tag:     rule.Tag,
			pattern: re,
			exclude: exclude,
			boosts:  rule.Boosts,
		})
	}

	for _, tmpl := range file.GateTemplates {
		trigger, err := regexp.Compile(tmpl.Trigger)
		if err != nil {
			return nil, fmt.Errorf("rules: gate template %q trigger: %w", tmpl.Category, err)
		}
		compiled := CompiledTemplate{Category: tmpl.Category, Trigger: trigger}
		if len(tmpl.Fields) == 0 {
			return nil, fmt.Errorf("rules: gate template %q has no fields", tmpl.Category)
		}
		for _, field := range tmpl.Fields {
			fieldRe, err := regexp.Compile(field.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rules: gate field %q pattern: %w", field.Name, err)
			}
			compiled.Fields = append(compiled.Fields, CompiledField{
				Name:    field.Name,
				Pattern: fieldRe,
				Prompt:  field.Prompt,
			})
		}
		rs.templates = append(rs.templates, compiled)
	}

	return rs, nil
}

// Sources returns the source table in declaration order.
func (rs *Ruleset) Sources() []Source {
	return rs.sources
}

// PrioritySources returns the names of the priority set, in table order.
func (rs *Ruleset) PrioritySources() []string {
	out := make([]string, 0, len(rs.sources))
	for _, src := range rs.sources {
		if src.Priority {
			out = append(out, src.Name)
		}
	}
	return out
}

func (rs *Ruleset) IsPriority(source string) bool {
	src, ok := rs.byName[source]
	return ok && src.Priority
}

func (rs *Ruleset) IsCurrent(source string) bool {
	src, ok := rs.byName[source]
	return ok && src.Current
}

// LabelFor returns the short display label for a source, falling back to
// the source name itself.
func (rs *Ruleset) LabelFor(source string) string {
	if src, ok := rs.byName[source]; ok && src.Label != "" {
		return src.Label
	}
	return source
}

// MatchBoosts evaluates every boost rule against the query and returns
// the merged source-prefix multipliers plus the tags of the rules that
// fired. Later rules override earlier ones on prefix collision.
func (rs *Ruleset) MatchBoosts(query string) (map[string]float64, []string) {
	var tags []string
	merged := make(map[string]float64)
	for _, rule := range rs.boosts {
		if !rule.pattern.MatchString(query) {
			continue
		}
		if rule.exclude != nil && rule.exclude.MatchString(query) {
			continue
		}
		tags = append(tags, rule.tag)
		for prefix, factor := range rule.boosts {
			merged[prefix] = factor
		}
	}
	return merged, tags
}

// BoostFor resolves the multiplier for a source against a prefix map,
// preferring the longest matching prefix. Returns 1.0 when nothing
// matches.
func BoostFor(source string, boosts map[string]float64) float64 {
	best := 1.0
	bestLen := -1
	for prefix, factor := range boosts {
		if !strings.HasPrefix(source, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			best = factor
			bestLen = len(prefix)
		}
	}
	return best
}

// Templates returns the compiled gate templates in declaration order.
func (rs *Ruleset) Templates() []CompiledTemplate {
	return rs.templates
}

// TemplateByCategory looks up a compiled gate template.
func (rs *Ruleset) TemplateByCategory(category string) (CompiledTemplate, bool) {
	for _, tmpl := range rs.templates {
		if tmpl.Category == category {
			return tmpl, true
		}
	}
	return CompiledTemplate{}, false
}
