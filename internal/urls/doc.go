// Package urls holds the documentation links printed by the CLI commands,
// so they can be updated in one place.
//
// Usage:
//
//	import "github.com/muurk/vtdash/internal/urls"
//
//	fmt.Printf("See %s to create a token\n", urls.AccessTokens)
package urls
