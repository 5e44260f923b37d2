package history

// boundedStack стек с ограниченной емкостью; при переполнении вытесняется самый старый элемент
type boundedStack struct {
	items    []*ChangeSet
	capacity int
}

func newBoundedStack(capacity int) boundedStack {
	return boundedStack{capacity: capacity}
}

// push кладет элемент и возвращает вытесненный (или nil)
func (s *boundedStack) push(cs *ChangeSet) *ChangeSet {
	s.items = append(s.items, cs)
	if len(s.items) <= s.capacity {
		return nil
	}
	evicted := s.items[0]
	s.items[0] = nil
	s.items = s.items[1:]
	return evicted
}

func (s *boundedStack) pop() (*ChangeSet, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	last := len(s.items) - 1
	cs := s.items[last]
	s.items[last] = nil
	s.items = s.items[:last]
	return cs, true
}

func (s *boundedStack) clear() {
	s.items = nil
}

func (s *boundedStack) len() int {
	return len(s.items)
}

// snapshot копия от самого старого к самому новому
func (s *boundedStack) snapshot() []*ChangeSet {
	return append([]*ChangeSet(nil), s.items...)
}
