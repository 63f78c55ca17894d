package schema

import "strings"

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ContainerName derives a container name from an original filename:
// lowercase, with dots and underscores replaced by hyphens
func ContainerName(filename string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(strings.ToLower(filename))
}

// ContainerLabel derives a container name from a caller-supplied label:
// lowercase, with spaces replaced by hyphens
func ContainerLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "-")
}

// ValidContainer reports whether name can be used as a container name
func ValidContainer(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
