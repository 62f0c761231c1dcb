package format

// DerefString returns *s, or fallback when s is nil.
func DerefString(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
