package storage

// SetStatfs replaces the free-space probe for tests.
func (f *Filesystem) SetStatfs(fn func(path string) (uint64, uint64, error)) {
	f.statfs = fn
}
