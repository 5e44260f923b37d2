package block

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BlockID представляет идентификатор материала
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5
	LavaBlockID                 // 6
	GlassBlockID                // 7
	GravelBlockID               // 8

	// Декоративные блоки (начиная с 100)
	FlowerBlockID    BlockID = 100
	LogBlockID       BlockID = 101 // Ствол, ориентируется по оси
	CactusBlockID    BlockID = 102
	PlanksBlockID    BlockID = 103
	StairsBlockID    BlockID = 104
	WheatBlockID     BlockID = 105
	WoolBlockID      BlockID = 106

	// Интерактивные блоки (начиная с 200)
	ChestBlockID BlockID = 200
	DoorBlockID  BlockID = 201

	// Специальные блоки (начиная с 1000)
	PortalBlockID  BlockID = 1000
	SpawnerBlockID BlockID = 1001

	// Предметы, которые нельзя поставить в мир (начиная с 2000)
	StickItemID   BlockID = 2000
	DiamondItemID BlockID = 2001
	BucketItemID  BlockID = 2002
)

// Namespace используется в полностью квалифицированных именах ("core:stone").
const Namespace = "core"

// StateDef описывает одно свойство состояния и допустимые значения.
// Первое значение считается значением по умолчанию.
type StateDef struct {
	Key    string
	Values []string
}

// Default возвращает значение по умолчанию
func (s StateDef) Default() string {
	return s.Values[0]
}

// Allows проверяет, допустимо ли значение
func (s StateDef) Allows(v string) bool {
	for _, allowed := range s.Values {
		if allowed == v {
			return true
		}
	}
	return false
}

// Material описывает тип ячейки или предмета
type Material struct {
	ID      BlockID
	Name    string
	IsBlock bool // false для предметов, которые не могут быть содержимым ячейки
	States  []StateDef
}

// State возвращает определение свойства по ключу
func (m Material) State(key string) (StateDef, bool) {
	for _, s := range m.States {
		if s.Key == key {
			return s, true
		}
	}
	return StateDef{}, false
}

// Registry хранит известные материалы по ID и по имени
type Registry struct {
	mu     sync.RWMutex
	byID   map[BlockID]Material
	byName map[string]BlockID
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[BlockID]Material),
		byName: make(map[string]BlockID),
	}
}

// Register добавляет материал в реестр
func (r *Registry) Register(m Material) error {
	name := strings.ToLower(m.Name)
	for _, s := range m.States {
		if len(s.Values) == 0 {
			return fmt.Errorf("material %s: state %s has no values", name, s.Key)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[m.ID]; exists {
		return fmt.Errorf("material id %d already registered", m.ID)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("material %s already registered", name)
	}
	m.Name = name
	states := append([]StateDef(nil), m.States...)
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	m.States = states
	r.byID[m.ID] = m
	r.byName[name] = m.ID
	return nil
}

// Get возвращает материал по ID
func (r *Registry) Get(id BlockID) (Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// Lookup ищет материал по имени, допускается префикс пространства имен "core:"
func (r *Registry) Lookup(name string) (Material, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if ns, local, found := strings.Cut(name, ":"); found {
		if ns != Namespace {
			return Material{}, false
		}
		name = local
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return Material{}, false
	}
	return r.byID[id], true
}

// Names возвращает отсортированный список имен материалов
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = newDefaultRegistry()

// Default возвращает общий реестр встроенных материалов
func Default() *Registry {
	return defaultRegistry
}

// Register добавляет материал в общий реестр
func Register(m Material) error {
	return defaultRegistry.Register(m)
}

// Get возвращает материал общего реестра по ID
func Get(id BlockID) (Material, bool) {
	return defaultRegistry.Get(id)
}

// Lookup ищет материал общего реестра по имени
func Lookup(name string) (Material, bool) {
	return defaultRegistry.Lookup(name)
}

func levels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", i)
	}
	return out
}

var facing = []string{"north", "east", "south", "west"}

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	builtin := []Material{
		{ID: AirBlockID, Name: "air", IsBlock: true},
		{ID: StoneBlockID, Name: "stone", IsBlock: true},
		{ID: GrassBlockID, Name: "grass", IsBlock: true, States: []StateDef{{Key: "snowy", Values: []string{"false", "true"}}}},
		{ID: WaterBlockID, Name: "water", IsBlock: true, States: []StateDef{{Key: "level", Values: levels(16)}}},
		{ID: SandBlockID, Name: "sand", IsBlock: true},
		{ID: DirtBlockID, Name: "dirt", IsBlock: true},
		{ID: LavaBlockID, Name: "lava", IsBlock: true, States: []StateDef{{Key: "level", Values: levels(16)}}},
		{ID: GlassBlockID, Name: "glass", IsBlock: true},
		{ID: GravelBlockID, Name: "gravel", IsBlock: true},
		{ID: FlowerBlockID, Name: "flower", IsBlock: true},
		{ID: LogBlockID, Name: "oak_log", IsBlock: true, States: []StateDef{{Key: "axis", Values: []string{"y", "x", "z"}}}},
		{ID: CactusBlockID, Name: "cactus", IsBlock: true, States: []StateDef{{Key: "age", Values: levels(16)}}},
		{ID: PlanksBlockID, Name: "oak_planks", IsBlock: true},
		{ID: StairsBlockID, Name: "oak_stairs", IsBlock: true, States: []StateDef{
			{Key: "facing", Values: facing},
			{Key: "half", Values: []string{"bottom", "top"}},
		}},
		{ID: WheatBlockID, Name: "wheat", IsBlock: true, States: []StateDef{{Key: "age", Values: levels(8)}}},
		{ID: WoolBlockID, Name: "wool", IsBlock: true, States: []StateDef{{Key: "color", Values: []string{"white", "red", "green", "blue", "black"}}}},
		{ID: ChestBlockID, Name: "chest", IsBlock: true, States: []StateDef{{Key: "facing", Values: facing}}},
		{ID: DoorBlockID, Name: "oak_door", IsBlock: true, States: []StateDef{
			{Key: "facing", Values: facing},
			{Key: "half", Values: []string{"lower", "upper"}},
			{Key: "open", Values: []string{"false", "true"}},
		}},
		{ID: PortalBlockID, Name: "portal", IsBlock: true},
		{ID: SpawnerBlockID, Name: "spawner", IsBlock: true},
		{ID: StickItemID, Name: "stick"},
		{ID: DiamondItemID, Name: "diamond"},
		{ID: BucketItemID, Name: "bucket"},
	}
	for _, m := range builtin {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}
