package logging

import "context"

type contextKey string

const repoKey contextKey = "repo"

// WithRepo adds the sync repository name to the context.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoKey, repo)
}

// GetRepo retrieves the sync repository name from the context.
// Returns empty string if not present.
func GetRepo(ctx context.Context) string {
	if repo, ok := ctx.Value(repoKey).(string); ok {
		return repo
	}
	return ""
}
