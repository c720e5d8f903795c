package compositor

// Space is an ordered view collection belonging to one output. Multiple
// spaces can belong to one output; exactly one is focused. Space does
// not own its views (they are non-owning references into layout-policy
// state) nor its Output back-reference, which only the Output accessor
// reads.
type Space struct {
	output   *Output
	views    []View
	UserData any
}

// newSpace is always created at the tail of output's space list. Use
// Output.NewSpace, not this directly, so the invariant "focused space
// is non-nil iff the space list is non-empty" is maintained in one
// place.
func newSpace(output *Output) *Space {
	return &Space{output: output}
}

// Output returns the space's owning output.
func (s *Space) Output() *Output { return s.output }

// Views returns the space's views in back-to-front paint order. The
// returned slice is owned by Space; callers must not mutate it.
func (s *Space) Views() []View { return s.views }

// AddView appends a view to the tail of the space's view list.
func (s *Space) AddView(v View) {
	s.views = append(s.views, v)
}

// RemoveView removes v from the space's view list, if present.
func (s *Space) RemoveView(v View) {
	for i, existing := range s.views {
		if existing == v {
			s.views = append(s.views[:i], s.views[i+1:]...)
			return
		}
	}
}
