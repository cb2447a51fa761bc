package interp

// Scope is a stack of variable frames. A bare or `local`-free assignment
// writes to the root frame (frame 0); `local` writes to the innermost
// frame, shadowing any outer binding of the same name for the lifetime of
// that frame. Lookup walks from the innermost frame outward.
type Scope struct {
	frames []map[string]Value
}

// NewScope creates a scope with a single root frame.
func NewScope() *Scope {
	return &Scope{frames: []map[string]Value{{}}}
}

// Push opens a new frame, e.g. entering a tool body or a loop body.
func (s *Scope) Push() {
	s.frames = append(s.frames, map[string]Value{})
}

// Pop closes the innermost frame.
func (s *Scope) Pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Get looks up a variable, walking from the innermost frame outward.
func (s *Scope) Get(name string) (Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return Null, false
}

// Set writes to the root frame, per bare/global assignment semantics.
func (s *Scope) Set(name string, v Value) {
	s.frames[0][name] = v
}

// SetLocal writes to the innermost frame, per `local` assignment
// semantics.
func (s *Scope) SetLocal(name string, v Value) {
	s.frames[len(s.frames)-1][name] = v
}

// Root returns a copy of the root frame's bindings, the session-level
// variables a state store snapshots and restores.
func (s *Scope) Root() map[string]Value {
	out := make(map[string]Value, len(s.frames[0]))
	for k, v := range s.frames[0] {
		out[k] = v
	}
	return out
}

// Clone deep-copies the entire frame stack, giving the caller an
// exclusive scope that shares no mutable state with the original. A
// scatter worker gets one of these per item, so concurrent workers never
// race on the same frame map.
func (s *Scope) Clone() *Scope {
	frames := make([]map[string]Value, len(s.frames))
	for i, f := range s.frames {
		nf := make(map[string]Value, len(f))
		for k, v := range f {
			nf[k] = v
		}
		frames[i] = nf
	}
	return &Scope{frames: frames}
}
