package config

// hashBytes is FNV-1a 64. Used to suppress redundant reload publishes when
// the file changed on disk but the parsed content did not.
func hashBytes(b []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}
