// Package auth provides authentication and authorization for the API.
//
// Every request outside the public paths must carry a bearer token:
//
//	Authorization: Bearer <header>.<payload>.<signature>
//
// Tokens are HS256-signed with a random secret generated once at process
// start, so restarting the server invalidates every token issued before.
// Tokens are stateless; there is no revocation list and they simply expire
// after AUTH_TOKEN_TTL (15 minutes by default).
//
// # Configuration
//
//	AUTH_ISSUER=bookworms         # "iss" claim
//	AUTH_TOKEN_TTL=15m            # token lifetime
//	AUTH_HASH_ITERATIONS=350000   # PBKDF2-HMAC-SHA512 iterations
//	AUTH_MAX_LOGIN_ATTEMPTS=5     # failed logins before lockout
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	secret, _ := auth.GenerateSigningSecret()
//	tokens, _ := auth.NewTokenService(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
//	authService, _ := auth.NewService(usersRepo, tokens, auth.NewHasher(cfg.Auth.HashIterations))
//	authMiddleware := auth.NewMiddleware(tokens)
//	router.Use(authMiddleware.Handler())
//	admin := router.Group("/api/admin", authMiddleware.RequireRole(entities.UserRoleAdmin))
//
// Extract identity in handlers:
//
//	username := auth.GetUsername(c)
//	role := auth.GetUserRole(c)
package auth
