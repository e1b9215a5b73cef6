package registry

import (
	"fmt"
)

// Activate appends title to the end of the active order.
// Activating an active mod is a no-op.
func (r *Registry) Activate(title string) error {
	if _, ok := r.index[title]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMod, title)
	}
	if r.IsActive(title) {
		return nil
	}
	r.active = append(r.active, title)
	return nil
}

// Deactivate removes title from the active order, keeping the relative order
// of the remaining titles. Deactivating an inactive mod is a no-op.
func (r *Registry) Deactivate(title string) error {
	if _, ok := r.index[title]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMod, title)
	}
	if i := r.position(title); i >= 0 {
		r.active = append(r.active[:i], r.active[i+1:]...)
	}
	return nil
}

// DeactivateAll clears the active order.
func (r *Registry) DeactivateAll() {
	r.active = nil
}

// ApplySelection replaces the active order with checked, in the given order.
// Duplicates in checked are ignored. If any title is unknown the active order
// is left untouched.
func (r *Registry) ApplySelection(checked []string) error {
	for _, title := range checked {
		if _, ok := r.index[title]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMod, title)
		}
	}

	r.DeactivateAll()
	for _, title := range checked {
		if err := r.Activate(title); err != nil {
			return err
		}
	}
	return nil
}

// ReorderUp swaps title with its predecessor in the active order.
// It is a no-op for inactive titles and for the first entry.
func (r *Registry) ReorderUp(title string) {
	i := r.position(title)
	if i <= 0 {
		return
	}
	r.active[i-1], r.active[i] = r.active[i], r.active[i-1]
}

// ReorderDown swaps title with its successor in the active order.
// It is a no-op for inactive titles and for the last entry.
func (r *Registry) ReorderDown(title string) {
	i := r.position(title)
	if i < 0 || i == len(r.active)-1 {
		return
	}
	r.active[i], r.active[i+1] = r.active[i+1], r.active[i]
}
