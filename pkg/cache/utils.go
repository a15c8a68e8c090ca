package cache

import "fmt"

// GenerateKey joins a namespace prefix and an entry id.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}
