package cache

// ScopedKeyer wraps a Keyer with a prefix, so several users of one backend
// keep separate namespaces.
//
//	ciKeyer := NewScopedKeyer(NewDefaultKeyer(), "ci:")
//	devKeyer := NewScopedKeyer(NewDefaultKeyer(), "dev:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RunKey implements Keyer.
func (k *ScopedKeyer) RunKey(configHash, graphHash string) string {
	return k.prefix + k.inner.RunKey(configHash, graphHash)
}

// OrderKey implements Keyer.
func (k *ScopedKeyer) OrderKey(configHash string) string {
	return k.prefix + k.inner.OrderKey(configHash)
}
