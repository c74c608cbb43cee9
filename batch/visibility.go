package batch

// The render visibility of a set of objects at the time the snapshot was taken.
type VisibilitySnapshot map[Object]bool

// Capture the render visibility of every object in every collection.
func SnapshotVisibility(host Host) VisibilitySnapshot {
	snapshot := make(VisibilitySnapshot)
	for _, coll := range host.Collections() {
		for _, obj := range coll.Objects() {
			snapshot[obj] = obj.HideRender()
		}
	}
	return snapshot
}

// Restore the captured visibility flags.
func (s VisibilitySnapshot) Restore() {
	for obj, hidden := range s {
		obj.SetHideRender(hidden)
	}
}

// Hide every object except target from the render.
func isolate(host Host, target Object) {
	for _, coll := range host.Collections() {
		for _, obj := range coll.Objects() {
			obj.SetHideRender(obj != target)
		}
	}
}
