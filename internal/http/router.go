package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestIDMiddleware())
	router.Use(gin.LoggerWithFormatter(logFormatter))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.HSTSMaxAge > 0 {
		router.Use(auth.StrictTransportSecurityMiddleware(cfg.HSTSMaxAge))
	}

	authMiddleware := auth.NewMiddleware(cfg.Tokens)
	router.Use(authMiddleware.Handler())

	router.NoRoute(notFound)
	router.NoMethod(methodNotAllowed)

	admin := authMiddleware.RequireRole(entities.UserRoleAdmin)
	parent := authMiddleware.RequireRole(entities.UserRoleParent, entities.UserRoleAdmin)
	teacher := authMiddleware.RequireRole(entities.UserRoleTeacher, entities.UserRoleAdmin)

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	if cfg.AuthService != nil {
		auth.NewAuthController(cfg.AuthService, cfg.LoginLimiter).RegisterRoutes(router)
	}

	api := router.Group("/api")

	// Account endpoints
	users := NewUsersController(cfg.Users, cfg.AuthService)
	api.GET("/users/me", users.GetMe)
	api.PUT("/users/me", users.UpdateMe)
	api.DELETE("/users/me", users.DeleteMe)
	api.PUT("/users/me/password", users.ChangePassword)
	api.GET("/admin/users", admin, users.ListUsers)
	api.DELETE("/admin/users/:username", admin, users.DeleteUser)

	// Children endpoints; ownership is checked per child
	kids := NewChildrenController(cfg.Users, cfg.Children, cfg.Shelves, cfg.Rooms)
	api.GET("/children", parent, kids.ListChildren)
	api.POST("/children", parent, kids.CreateChild)
	api.GET("/children/:id", kids.GetChild)
	api.PUT("/children/:id", kids.UpdateChild)
	api.DELETE("/children/:id", kids.DeleteChild)
	api.PUT("/children/:id/classroom", parent, kids.JoinClassroom)
	api.DELETE("/children/:id/classroom", parent, kids.LeaveClassroom)
	api.GET("/children/:id/bookshelves", kids.ListShelves)
	api.POST("/children/:id/bookshelves", kids.CreateShelf)

	// Bookshelf endpoints
	shelves := NewBookshelvesController(cfg.Users, cfg.Shelves, cfg.Children, cfg.Rooms)
	api.GET("/bookshelves/:id", shelves.GetShelf)
	api.PUT("/bookshelves/:id", shelves.RenameShelf)
	api.DELETE("/bookshelves/:id", shelves.DeleteShelf)
	api.POST("/bookshelves/:id/books", shelves.AddBook)
	api.DELETE("/bookshelves/:id/books/:bookId", shelves.RemoveBook)

	// Catalog endpoints
	var bookOpts []BooksOption
	if cfg.Enricher != nil {
		bookOpts = append(bookOpts, WithEnricher(cfg.Enricher))
	}
	if cfg.Covers != nil {
		bookOpts = append(bookOpts, WithCovers(cfg.Covers))
	}
	if cfg.TaskQueue != nil {
		bookOpts = append(bookOpts, WithTaskQueue(cfg.TaskQueue))
	}
	books := NewBooksController(cfg.Users, cfg.Books, bookOpts...)
	api.GET("/search", books.Search)
	api.POST("/books", teacher, books.CreateBook)
	api.GET("/books/:id", books.GetBook)
	api.PUT("/books/:id", admin, books.UpdateBook)
	api.DELETE("/books/:id", admin, books.DeleteBook)
	api.POST("/books/:id/enrich", admin, books.EnrichBook)
	api.GET("/books/:id/cover", books.GetCover)
	api.PUT("/books/:id/review", books.PutReview)
	api.DELETE("/books/:id/review", books.DeleteReview)

	// Classroom endpoints
	rooms := NewClassroomsController(cfg.Users, cfg.Rooms, cfg.Children, cfg.Shelves)
	api.GET("/classrooms", teacher, rooms.ListClassrooms)
	api.POST("/classrooms", teacher, rooms.CreateClassroom)
	api.GET("/classrooms/:id", rooms.GetClassroom)
	api.DELETE("/classrooms/:id", rooms.DeleteClassroom)
	api.GET("/classrooms/:id/bookshelves", rooms.ListShelves)
	api.POST("/classrooms/:id/bookshelves", rooms.CreateShelf)
	api.GET("/classrooms/:id/goals", rooms.ListGoals)
	api.POST("/classrooms/:id/goals", rooms.CreateGoal)
	api.DELETE("/goals/:id", rooms.DeleteGoal)
	api.PUT("/goals/:id/progress", rooms.SetProgress)

	// Task endpoints
	if cfg.TaskQueue != nil {
		taskController := NewTasksController(cfg.TaskQueue)
		api.GET("/tasks/:id", admin, taskController.GetTaskStatus)
		api.POST("/tasks/enrich_all_books", admin, taskController.EnrichAll)
	}

	return router
}
