package pattern

import (
	"strings"

	"github.com/annel0/worldedit/internal/world/block"
)

// Rule одно правило маски: дескриптор (или любой) и признак отрицания
type Rule struct {
	Any        bool
	Negated    bool
	Descriptor block.Descriptor
}

func (r Rule) matches(d block.Descriptor) bool {
	return r.Any || d.Matches(r.Descriptor)
}

// Mask предикат над дескрипторами
type Mask struct {
	rules []Rule
}

// Rules возвращает копию правил
func (m *Mask) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// Matches: при наличии положительных правил дескриптор обязан подойти хотя бы под одно,
// затем он отклоняется, если подходит под любое отрицательное правило.
func (m *Mask) Matches(d block.Descriptor) bool {
	hasPositive, matchedPositive := false, false
	for _, r := range m.rules {
		if r.Negated {
			continue
		}
		hasPositive = true
		if r.matches(d) {
			matchedPositive = true
			break
		}
	}
	if hasPositive && !matchedPositive {
		return false
	}
	for _, r := range m.rules {
		if r.Negated && r.matches(d) {
			return false
		}
	}
	return true
}

func (m *Mask) String() string {
	parts := make([]string, len(m.rules))
	for i, r := range m.rules {
		var sb strings.Builder
		if r.Negated {
			sb.WriteByte('!')
		}
		if r.Any {
			sb.WriteByte('*')
		} else {
			sb.WriteString(r.Descriptor.String())
		}
		parts[i] = sb.String()
	}
	return strings.Join(parts, ",")
}
