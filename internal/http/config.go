package http

import (
	"github.com/mrlokans/bookworms/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database Pinger
	Users    UserStore
	Children ChildStore
	Shelves  ShelfStore
	Books    BookStore
	Rooms    ClassroomStore

	// Authentication
	AuthService  *auth.Service
	Tokens       auth.TokenVerifier
	LoginLimiter *auth.LoginLimiter

	// HSTSMaxAge enables Strict-Transport-Security when positive.
	HSTSMaxAge int

	// Application info
	Version string

	// Metadata enrichment (optional)
	Enricher BookEnricher

	// Cover caching (optional)
	Covers CoverSource

	// Task queue client (optional)
	TaskQueue TaskQueue
}
