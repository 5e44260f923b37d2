package block

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Descriptor описывает содержимое ячейки: материал и вариант состояния.
// Значение неизменяемое и сравнимое через ==; состояния хранятся
// в канонической форме "k1=v1,k2=v2" с сортировкой по ключу.
type Descriptor struct {
	ID     BlockID
	states string
}

// Air пустая ячейка
var Air = Descriptor{ID: AirBlockID}

// IsAir сообщает, является ли ячейка пустой
func (d Descriptor) IsAir() bool {
	return d.ID == AirBlockID
}

// Name возвращает имя материала по общему реестру
func (d Descriptor) Name() string {
	if m, ok := Get(d.ID); ok {
		return m.Name
	}
	return fmt.Sprintf("#%d", d.ID)
}

// HasStates сообщает, заданы ли свойства состояния
func (d Descriptor) HasStates() bool {
	return d.states != ""
}

// States возвращает копию свойств состояния
func (d Descriptor) States() map[string]string {
	out := make(map[string]string)
	if d.states == "" {
		return out
	}
	for _, pair := range strings.Split(d.states, ",") {
		k, v, _ := strings.Cut(pair, "=")
		out[k] = v
	}
	return out
}

// State возвращает значение свойства
func (d Descriptor) State(key string) (string, bool) {
	v, ok := d.States()[key]
	return v, ok
}

// Matches проверяет, что d соответствует правилу: тот же материал и
// все явно заданные в правиле свойства совпадают.
func (d Descriptor) Matches(rule Descriptor) bool {
	if d.ID != rule.ID {
		return false
	}
	if rule.states == "" {
		return true
	}
	own := d.States()
	for k, v := range rule.States() {
		if own[k] != v {
			return false
		}
	}
	return true
}

func (d Descriptor) String() string {
	if d.states == "" {
		return d.Name()
	}
	return d.Name() + "[" + d.states + "]"
}

func canonical(states map[string]string) string {
	if len(states) == 0 {
		return ""
	}
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + states[k]
	}
	return strings.Join(parts, ",")
}

// validate проверяет свойства по схеме материала
func (m Material) validate(states map[string]string) error {
	for k, v := range states {
		def, ok := m.State(k)
		if !ok {
			return fmt.Errorf("material %s has no state %q", m.Name, k)
		}
		if !def.Allows(v) {
			return fmt.Errorf("material %s: invalid value %q for state %q", m.Name, v, k)
		}
	}
	return nil
}

// Descriptor строит полный дескриптор: значения по умолчанию дополняются явными свойствами.
func (m Material) Descriptor(states map[string]string) (Descriptor, error) {
	if !m.IsBlock {
		return Descriptor{}, fmt.Errorf("%s is not a block", m.Name)
	}
	if err := m.validate(states); err != nil {
		return Descriptor{}, err
	}
	full := make(map[string]string, len(m.States))
	for _, def := range m.States {
		full[def.Key] = def.Default()
	}
	for k, v := range states {
		full[k] = v
	}
	return Descriptor{ID: m.ID, states: canonical(full)}, nil
}

// Rule строит дескриптор-правило только из явно заданных свойств (для масок).
func (m Material) Rule(states map[string]string) (Descriptor, error) {
	if !m.IsBlock {
		return Descriptor{}, fmt.Errorf("%s is not a block", m.Name)
	}
	if err := m.validate(states); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{ID: m.ID, states: canonical(states)}, nil
}

// ParseStates разбирает список "k=v,k2=v2" (без скобок)
func ParseStates(list string) (map[string]string, error) {
	out := make(map[string]string)
	list = strings.TrimSpace(list)
	if list == "" {
		return out, nil
	}
	for _, pair := range strings.Split(list, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(strings.ToLower(k)), strings.TrimSpace(strings.ToLower(v))
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("malformed state %q", pair)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("duplicate state %q", k)
		}
		out[k] = v
	}
	return out, nil
}

// Parse разбирает запись вида "oak_log[axis=x]" в полный дескриптор
func (r *Registry) Parse(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	name, rest, hasStates := strings.Cut(s, "[")
	m, ok := r.Lookup(name)
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown material %q", name)
	}
	states := map[string]string{}
	if hasStates {
		if !strings.HasSuffix(rest, "]") {
			return Descriptor{}, fmt.Errorf("unterminated state list in %q", s)
		}
		var err error
		if states, err = ParseStates(strings.TrimSuffix(rest, "]")); err != nil {
			return Descriptor{}, err
		}
	}
	return m.Descriptor(states)
}

// MustParse разбирает дескриптор общего реестра и паникует при ошибке
func MustParse(s string) Descriptor {
	d, err := defaultRegistry.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalBinary кодирует дескриптор: ID (uint16, big-endian), затем каноническая строка состояний
func (d Descriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2+len(d.states))
	binary.BigEndian.PutUint16(buf, uint16(d.ID))
	copy(buf[2:], d.states)
	return buf, nil
}

// UnmarshalBinary восстанавливает дескриптор, записанный MarshalBinary
func (d *Descriptor) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("descriptor too short: %d bytes", len(data))
	}
	id := BlockID(binary.BigEndian.Uint16(data))
	if _, ok := Get(id); !ok {
		return fmt.Errorf("unknown block id %d", id)
	}
	d.ID = id
	d.states = string(data[2:])
	return nil
}
