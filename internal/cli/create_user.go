package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/config"
	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/users"
	"github.com/mrlokans/bookworms/internal/entities"
)

// CreateUserCommand creates an account directly in the database. It is the
// only way to create admin accounts.
type CreateUserCommand struct {
	Username string
	Email    string
	Password string
	Role     string

	cfg *config.Config
}

func NewCreateUserCommand(cfg *config.Config) *CreateUserCommand {
	return &CreateUserCommand{cfg: cfg}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username of the new account (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address of the new account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password; falls back to BOOKWORMS_PASSWORD")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleAdmin), "Role: admin, parent or teacher")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the SQLite database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an account. Use this to bootstrap the first administrator.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  BOOKWORMS_PASSWORD=... %s create-user -username admin -email admin@example.com\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -username mrs-lee -email lee@school.example -role teacher -password ...\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("BOOKWORMS_PASSWORD")
	}
	if cmd.Username == "" || cmd.Email == "" {
		fs.Usage()
		return fmt.Errorf("username and email are required")
	}
	if cmd.Password == "" {
		return fmt.Errorf("password is required (-password or BOOKWORMS_PASSWORD)")
	}
	if !entities.UserRole(cmd.Role).Valid() {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewDatabase(cmd.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service, err := auth.NewService(users.NewRepository(db.DB), nil, auth.NewHasher(cmd.cfg.Auth.HashIterations))
	if err != nil {
		return err
	}

	user, err := service.CreateUser(auth.RegisterInput{
		Username: cmd.Username,
		Email:    cmd.Email,
		Password: cmd.Password,
		Role:     entities.UserRole(cmd.Role),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created %s account %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
