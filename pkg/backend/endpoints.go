package backend

import (
	"fmt"
	"strings"
)

const (
	// MutationEndpoint runs a mutation function
	MutationEndpoint = "/api/mutation"

	// QueryEndpoint runs a read-only query function
	QueryEndpoint = "/api/query"

	// CloudDomain hosts named deployments
	CloudDomain = "convex.cloud"

	// DefaultLoginFunction is the login function path
	DefaultLoginFunction = "wallet:login"

	// DefaultCheckInFunction is the check-in function path
	DefaultCheckInFunction = "wallet:checkIn"
)

// ResolveBaseURL returns baseURL without a trailing slash, or the cloud URL
// of the named deployment when baseURL is empty.
func ResolveBaseURL(baseURL, deployment string) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			return "", fmt.Errorf("backend URL must be http(s): %s", baseURL)
		}
		return baseURL, nil
	}

	deployment = strings.TrimSpace(deployment)
	if deployment == "" {
		return "", fmt.Errorf("either a backend URL or a deployment name is required")
	}
	// "prod:happy-otter-123" style names carry an environment prefix
	if i := strings.LastIndex(deployment, ":"); i >= 0 {
		deployment = deployment[i+1:]
	}
	return fmt.Sprintf("https://%s.%s", deployment, CloudDomain), nil
}

// GetMutationURL constructs the mutation URL for baseURL
func GetMutationURL(baseURL string) string {
	return baseURL + MutationEndpoint
}

// GetQueryURL constructs the query URL for baseURL
func GetQueryURL(baseURL string) string {
	return baseURL + QueryEndpoint
}
