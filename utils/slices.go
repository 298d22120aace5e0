package utils

// Exists - checks if a field exists in slice
func Exists[K comparable](field K, slice []K) bool {
	for _, valid := range slice {
		if field == valid {
			return true
		}
	}
	return false
}
