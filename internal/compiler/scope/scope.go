package scope

// --- Table ---

// Table is one name -> binding map shared by every nesting level. Nested
// declarations overwrite entries in place and hand back the Shadows they
// displaced; Restore puts those back once the nested body is finished.
type Table[T any] struct {
	bindings map[string]T
	Name     string
}

// Shadow records what a name was bound to before it was rebound or removed.
type Shadow[T any] struct {
	Name     string
	Previous T
	Existed  bool
}

func New[T any](name string) *Table[T] {
	return &Table[T]{
		bindings: make(map[string]T),
		Name:     name,
	}
}

// Define binds name to value and returns the binding it replaced.
func (t *Table[T]) Define(name string, value T) Shadow[T] {
	prev, ok := t.bindings[name]
	t.bindings[name] = value
	return Shadow[T]{Name: name, Previous: prev, Existed: ok}
}

func (t *Table[T]) Lookup(name string) (T, bool) {
	v, ok := t.bindings[name]
	return v, ok
}

// Restore undoes shadows in reverse order, so a name shadowed twice in one
// group ends up with the binding it had before the group.
func (t *Table[T]) Restore(shadows []Shadow[T]) {
	for i := len(shadows) - 1; i >= 0; i-- {
		s := shadows[i]
		if s.Existed {
			t.bindings[s.Name] = s.Previous
		} else {
			delete(t.bindings, s.Name)
		}
	}
}
