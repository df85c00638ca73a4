package classifier

import (
	"os"
	"sync/atomic"
)

// Ref is an atomically swappable reference to the current trained model.
// Identification calls take one snapshot for their whole duration; the
// trainer publishes a new model with Swap after a successful run. A nil
// snapshot means no model has been trained yet.
type Ref struct {
	ptr atomic.Pointer[Model]
}

// NewRef returns an empty model reference.
func NewRef() *Ref {
	return &Ref{}
}

// Snapshot returns the current model, or nil if none is loaded.
func (r *Ref) Snapshot() *Model {
	return r.ptr.Load()
}

// Swap publishes a new model. Passing nil clears the reference.
func (r *Ref) Swap(m *Model) {
	r.ptr.Store(m)
}

// Reload replaces the reference with the artifact at path. A missing
// artifact clears the reference without error; callers must treat the nil
// snapshot as "cannot identify yet", not as a failure.
func (r *Ref) Reload(path string) error {
	m, err := Load(path)
	if os.IsNotExist(err) {
		r.ptr.Store(nil)
		return nil
	}
	if err != nil {
		return err
	}
	r.ptr.Store(m)
	return nil
}
