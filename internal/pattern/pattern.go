package pattern

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/annel0/worldedit/internal/world/block"
)

// Source источник равномерных чисел из [0, 1); *rand.Rand подходит
type Source interface {
	Float64() float64
}

// Entry дескриптор и накопленная вероятность
type Entry struct {
	Descriptor block.Descriptor
	Cumulative float64
}

// Pattern взвешенное распределение дескрипторов. Неизменяем после разбора.
type Pattern struct {
	entries []Entry
}

// Single шаблон из одного дескриптора
func Single(d block.Descriptor) *Pattern {
	return &Pattern{entries: []Entry{{Descriptor: d, Cumulative: 1.0}}}
}

// Entries возвращает копию таблицы
func (p *Pattern) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Pick возвращает дескриптор первой записи, чья накопленная вероятность больше r
func (p *Pattern) Pick(r float64) block.Descriptor {
	for _, e := range p.entries {
		if e.Cumulative > r {
			return e.Descriptor
		}
	}
	return p.entries[len(p.entries)-1].Descriptor
}

// Sample выбирает дескриптор; src == nil использует глобальный генератор
func (p *Pattern) Sample(src Source) block.Descriptor {
	if len(p.entries) == 1 {
		return p.entries[0].Descriptor
	}
	var r float64
	if src != nil {
		r = src.Float64()
	} else {
		r = rand.Float64()
	}
	return p.Pick(r)
}

func (p *Pattern) String() string {
	parts := make([]string, len(p.entries))
	prev := 0.0
	for i, e := range p.entries {
		parts[i] = formatPct((e.Cumulative-prev)*100) + "%" + e.Descriptor.String()
		prev = e.Cumulative
	}
	return strings.Join(parts, ",")
}

// formatPct печатает процент с точностью до тысячных без хвостовых нулей
func formatPct(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
