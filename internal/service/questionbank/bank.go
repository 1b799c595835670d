// Package questionbank serves curated interview questions from an embedded
// catalog. It is the guaranteed source when generative question writing is
// disabled or fails.
package questionbank

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

//go:embed bank.yaml
var rawBank []byte

// Defaults used when an unknown role or level is requested. Unknown inputs
// degrade to a served question rather than an error.
const (
	DefaultRole  = "Python Developer"
	DefaultLevel = "Easy"
)

// SourceBank is the provenance tag on questions served from the catalog.
const SourceBank = "bank"

type entry struct {
	Question      string            `yaml:"question"`
	Options       map[string]string `yaml:"options"`
	CorrectAnswer string            `yaml:"correct_answer"`
	IdealAnswer   string            `yaml:"ideal_answer"`
}

type bankFile struct {
	Roles map[string]map[string][]entry `yaml:"roles"`
	HR    map[string][]entry            `yaml:"hr"`
}

// Bank is an immutable in-memory question catalog keyed by role and level,
// plus a role-agnostic behavioral track keyed by level only.
type Bank struct {
	technical map[string]map[string][]domain.Question
	hr        map[string][]domain.Question
}

// Load parses the embedded catalog. Entries with options become validated
// multiple-choice questions; the rest are free-text.
func Load() (*Bank, error) {
	var bf bankFile
	if err := yaml.Unmarshal(rawBank, &bf); err != nil {
		return nil, fmt.Errorf("op=questionbank.Load: %w", err)
	}
	b := &Bank{
		technical: make(map[string]map[string][]domain.Question, len(bf.Roles)),
		hr:        make(map[string][]domain.Question, len(bf.HR)),
	}
	for role, levels := range bf.Roles {
		b.technical[role] = make(map[string][]domain.Question, len(levels))
		for level, entries := range levels {
			qs, err := buildQuestions(entries)
			if err != nil {
				return nil, fmt.Errorf("op=questionbank.Load role=%s level=%s: %w", role, level, err)
			}
			b.technical[role][level] = qs
		}
	}
	for level, entries := range bf.HR {
		qs, err := buildQuestions(entries)
		if err != nil {
			return nil, fmt.Errorf("op=questionbank.Load hr level=%s: %w", level, err)
		}
		b.hr[level] = qs
	}
	if _, ok := b.technical[DefaultRole][DefaultLevel]; !ok {
		return nil, fmt.Errorf("op=questionbank.Load: %w: catalog missing default role/level", domain.ErrInternal)
	}
	return b, nil
}

func buildQuestions(entries []entry) ([]domain.Question, error) {
	qs := make([]domain.Question, 0, len(entries))
	for _, e := range entries {
		if len(e.Options) == 0 {
			qs = append(qs, domain.NewFreeTextQuestion(e.Question, e.IdealAnswer))
			continue
		}
		q, err := domain.NewMCQQuestion(e.Question, e.Options, e.CorrectAnswer, e.IdealAnswer)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", e.Question, err)
		}
		qs = append(qs, q)
	}
	return qs, nil
}

// Roles lists the roles the catalog covers.
func (b *Bank) Roles() []string {
	roles := make([]string, 0, len(b.technical))
	for r := range b.technical {
		roles = append(roles, r)
	}
	return roles
}

// Select picks the question for the given ordinal. Consecutive ordinals reuse
// each bank entry twice before rotating, so a session longer than the catalog
// wraps around deterministically. Unknown role or level falls back to the
// defaults; hr switches to the behavioral track, which ignores role.
func (b *Bank) Select(role, level string, ordinal int, hr bool) domain.Question {
	var pool []domain.Question
	if hr {
		pool = b.hr[level]
		if len(pool) == 0 {
			pool = b.hr[DefaultLevel]
		}
	} else {
		levels, ok := b.technical[role]
		if !ok {
			levels = b.technical[DefaultRole]
		}
		pool = levels[level]
		if len(pool) == 0 {
			pool = b.technical[DefaultRole][DefaultLevel]
		}
	}
	if ordinal < 0 {
		ordinal = 0
	}
	q := pool[(ordinal/2)%len(pool)]
	q.Source = SourceBank
	return q
}
