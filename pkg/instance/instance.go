package instance

import "os"

// GetID identifies this process in logs: STOREFRONT_INSTANCE_ID, then the hostname.
func GetID() string {
	if id := os.Getenv("STOREFRONT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
