package trade

// Once is a write-once cell. The zero value is unset.
type Once[T any] struct {
	v   T
	set bool
}

// Set stores v, failing with ErrAlreadySet if a value is already present.
func (o *Once[T]) Set(v T) error {
	if o.set {
		return ErrAlreadySet
	}
	o.v = v
	o.set = true
	return nil
}

// Get returns the stored value and whether it has been set.
func (o Once[T]) Get() (T, bool) {
	return o.v, o.set
}

// IsSet reports whether a value is present.
func (o Once[T]) IsSet() bool {
	return o.set
}
