package config

const (
	// DefaultDatabasePath is the default path for the SQLite database
	DefaultDatabasePath = "./bookworms.db"

	// DefaultTasksDatabasePath holds the task queue when the catalog is not SQLite
	DefaultTasksDatabasePath = "./bookworms-tasks.db"

	// DefaultTokenIssuer is the "iss" claim of issued bearer tokens
	DefaultTokenIssuer = "bookworms"

	// DefaultHashIterations is the PBKDF2 iteration count for password hashing
	DefaultHashIterations = 350000

	// DefaultSearchResultLimit caps the number of books a search returns
	DefaultSearchResultLimit = 30

	// DefaultRelevanceThreshold is the minimum relevance score of a ranked search hit
	DefaultRelevanceThreshold = 0.5
)
