// Package pattern разбирает мини-язык шаблонов и масок:
//
//	entry := ["!"] [pct "%"] (ident | "*") ["[" states "]"]
//
// Шаблон задает взвешенное распределение дескрипторов, маска задает
// правила включения и исключения.
package pattern

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/world/block"
)

var entryRe = regexp.MustCompile(`^(?:(!))?(?:(\d{1,3}(?:\.\d+)?)%)?([a-z0-9_:]+|\*)(?:\[([^\]]+)\])?$`)

const sumTolerance = 0.001

// entry результат разбора одной записи
type entry struct {
	raw      string
	negated  bool
	pct      float64
	hasPct   bool
	wildcard bool
	name     string
	states   string
}

// Parser разбирает шаблоны и маски по реестру материалов
type Parser struct {
	registry *block.Registry
}

// NewParser создает парсер; nil означает общий реестр
func NewParser(r *block.Registry) *Parser {
	if r == nil {
		r = block.Default()
	}
	return &Parser{registry: r}
}

var defaultParser = NewParser(nil)

// ParsePattern разбирает шаблон замены по общему реестру
func ParsePattern(s string) (*Pattern, error) { return defaultParser.ParsePattern(s) }

// ParseMask разбирает маску по общему реестру
func ParseMask(s string) (*Mask, error) { return defaultParser.ParseMask(s) }

// splitEntries делит строку по запятым верхнего уровня (внутри [] запятые принадлежат состояниям)
func splitEntries(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func parseEntries(field, s string) ([]entry, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, errs.Invalid(field, "empty %s", field)
	}
	parts := splitEntries(s)
	out := make([]entry, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := entryRe.FindStringSubmatch(part)
		if m == nil {
			return nil, errs.Invalid(field, "malformed entry %q", part)
		}
		e := entry{
			raw:      part,
			negated:  m[1] != "",
			wildcard: m[3] == "*",
			name:     m[3],
			states:   m[4],
		}
		if m[2] != "" {
			pct, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, errs.Invalid(field, "bad percentage in %q", part)
			}
			e.pct, e.hasPct = pct, true
		}
		if e.wildcard && e.states != "" {
			return nil, errs.Invalid(field, "wildcard cannot carry states in %q", part)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errs.Invalid(field, "empty %s", field)
	}
	return out, nil
}

func (p *Parser) lookup(field string, e entry) (block.Material, map[string]string, error) {
	m, ok := p.registry.Lookup(e.name)
	if !ok {
		return block.Material{}, nil, errs.Invalid(field, "unknown material %q", e.name)
	}
	if !m.IsBlock {
		return block.Material{}, nil, errs.Invalid(field, "%q is not a block", e.name)
	}
	states, err := block.ParseStates(e.states)
	if err != nil {
		return block.Material{}, nil, errs.Invalid(field, "%q: %v", e.raw, err)
	}
	return m, states, nil
}

// ParseMask разбирает маску. Проценты в маске не несут смысла и игнорируются.
func (p *Parser) ParseMask(s string) (*Mask, error) {
	entries, err := parseEntries("mask", s)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(entries))
	for _, e := range entries {
		if e.wildcard {
			rules = append(rules, Rule{Any: true, Negated: e.negated})
			continue
		}
		m, states, err := p.lookup("mask", e)
		if err != nil {
			return nil, err
		}
		d, err := m.Rule(states)
		if err != nil {
			return nil, errs.Invalid("mask", "%q: %v", e.raw, err)
		}
		rules = append(rules, Rule{Descriptor: d, Negated: e.negated})
	}
	return &Mask{rules: rules}, nil
}

// ParsePattern разбирает шаблон замены. Отрицание в шаблоне не имеет смысла и игнорируется.
func (p *Parser) ParsePattern(s string) (*Pattern, error) {
	entries, err := parseEntries("pattern", s)
	if err != nil {
		return nil, err
	}

	descriptors := make([]block.Descriptor, len(entries))
	var (
		explicitTotal float64
		implicitCount int
	)
	for i, e := range entries {
		if e.wildcard {
			return nil, errs.Invalid("pattern", "wildcard is not allowed in a replacement pattern")
		}
		m, states, err := p.lookup("pattern", e)
		if err != nil {
			return nil, err
		}
		if descriptors[i], err = m.Descriptor(states); err != nil {
			return nil, errs.Invalid("pattern", "%q: %v", e.raw, err)
		}
		if e.hasPct {
			if e.pct <= 0 || e.pct > 100 {
				return nil, errs.Invalid("pattern", "percentage %v in %q must be in (0, 100]", e.pct, e.raw)
			}
			explicitTotal += e.pct
		} else {
			implicitCount++
		}
	}
	if explicitTotal > 100+sumTolerance {
		return nil, errs.Invalid("pattern", "percentages sum to %v, more than 100", explicitTotal)
	}

	weights := make([]float64, len(entries))
	var implicitShare float64
	if implicitCount > 0 {
		implicitShare = (100 - explicitTotal) / float64(implicitCount)
	}
	rescale := implicitCount == 0 && math.Abs(explicitTotal-100) > sumTolerance
	for i, e := range entries {
		switch {
		case !e.hasPct:
			weights[i] = implicitShare
		case rescale:
			weights[i] = e.pct * 100 / explicitTotal
		default:
			weights[i] = e.pct
		}
	}

	var (
		out        []Entry
		cumulative float64
	)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w / 100
		out = append(out, Entry{Descriptor: descriptors[i], Cumulative: cumulative})
	}
	if len(out) == 0 {
		return nil, errs.Invalid("pattern", "no entry has a positive weight")
	}
	out[len(out)-1].Cumulative = 1.0
	return &Pattern{entries: out}, nil
}
