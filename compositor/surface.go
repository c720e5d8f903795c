package compositor

// Buffer is an opaque client buffer handle (shm pool slice, dmabuf fd,
// ...). The core never interprets its contents; it is handed straight
// through to Renderer.SurfaceAttach.
type Buffer any

// Surface is a compositor-owned client surface. Surfaces live in an
// arena owned by the compositor; an output's knowledge of a surface is
// a weak relation plus a rendering resource keyed by surface identity.
// Output is that weak back-reference: it is non-nil iff a Renderer
// currently owns this surface's GPU resources on that output.
type Surface struct {
	ID     uint32
	Output *Output
}

// NewSurface allocates a surface with no attached output. Compositors
// typically keep these in a map keyed by wire protocol object id; this
// package doesn't prescribe that arena, only the per-surface state.
func NewSurface(id uint32) *Surface {
	return &Surface{ID: id}
}

// SurfaceAttach migrates a surface to a new output: it first releases
// the surface from any output it currently belongs to, then delegates
// to the new output's renderer. A failed attach leaves no partial
// state on the new output: a surface already on this output keeps it,
// and a surface migrating from another output has already been released
// there, so it ends with no output.
func SurfaceAttach(output *Output, surface *Surface, buffer Buffer) bool {
	if surface.Output != nil && surface.Output != output {
		SurfaceDestroy(surface.Output, surface)
	}
	if output.renderer == nil || !output.renderer.SurfaceAttach(surface, buffer) {
		return false
	}
	surface.Output = output
	output.scheduleRepaint()
	return true
}

// SurfaceDestroy releases renderer resources for this surface on this
// output, and nulls the surface's back-reference only if it still
// points here (a surface already migrated away must not have its new
// owner clobbered by a stale destroy call).
func SurfaceDestroy(output *Output, surface *Surface) {
	if surface.Output != output {
		return
	}
	if output.renderer != nil {
		output.renderer.SurfaceDestroy(surface)
	}
	surface.Output = nil
	output.scheduleRepaint()
}
