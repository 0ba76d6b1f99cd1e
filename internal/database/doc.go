// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── errors.go        # ErrNotFound / ErrConflict / ErrInvalidReference
//	├── users/           # Accounts
//	├── children/        # Children profiles owned by parents
//	├── bookshelves/     # Child and classroom shelves with ordered books
//	├── books/           # Catalog, reviews and search execution
//	├── classrooms/      # Classrooms, class codes, goals and progress
//	└── dbtest/          # Test helper opening a migrated temporary database
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations
// returning flat entities. Relations are foreign keys; a child points at its
// parent with ParentID and children of a parent are fetched with a query:
//
//	db, err := database.NewDatabase(cfg.Database)
//	childrenRepo := children.NewRepository(db.DB)
//	kids, err := childrenRepo.ListForParent(parentID)
//
// Repositories translate gorm errors with Translate, so callers match on
// database.ErrNotFound and friends instead of gorm internals.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register new entities in Models
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
