package interp

// scope is a lexical scope stack: a LIFO stack of frames, each a
// name->value mapping. Lookup walks top to bottom and returns the
// first match. Nothing in the base JMESPath grammar introduces a
// named binding, so in practice the stack stays empty for every
// expression this engine parses; it exists so a dialect extension (a
// `let` form) has somewhere to put its bindings without touching the
// evaluator's call signature.
type scope struct {
	frames []map[string]interface{}
}

func newScope() *scope { return &scope{} }

func (s *scope) push(frame map[string]interface{}) {
	s.frames = append(s.frames, frame)
}

func (s *scope) pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

// lookup returns the value bound to name, or (nil, false) if no frame
// binds it.
func (s *scope) lookup(name string) (interface{}, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}
