// Command booknestctl is the operator CLI: bootstrap an admin account
// and seed the catalog, working directly against the database file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/config"
	"github.com/sakif/booknest/internal/model"
	sqliteRepo "github.com/sakif/booknest/internal/repository/sqlite"
)

func main() {
	root := &cobra.Command{
		Use:          "booknestctl",
		Short:        "BookNest operations CLI",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("db", "", "database path (defaults to DB_PATH / data/booknest.db)")

	root.AddCommand(createAdminCmd())
	root.AddCommand(seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cmd *cobra.Command) (*sqliteRepo.DB, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = config.Load().Database.Path
	}
	return sqliteRepo.New(path)
}

// createAdminCmd promotes an existing account to admin, or creates a
// fresh admin account, prompting for the password without echo.
func createAdminCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account (or promote an existing one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			email = strings.ToLower(strings.TrimSpace(email))

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			accounts := sqliteRepo.NewAccountRepo(db)
			ctx := context.Background()

			existing, err := accounts.GetByEmail(ctx, email)
			if err == nil {
				if existing.Role == model.RoleAdmin {
					fmt.Printf("%s is already an admin\n", email)
					return nil
				}
				existing.Role = model.RoleAdmin
				if err := accounts.Update(ctx, existing); err != nil {
					return err
				}
				fmt.Printf("promoted %s to admin\n", email)
				return nil
			}
			if !errors.Is(err, apperror.ErrNotFound) {
				return err
			}

			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			hash, err := auth.NewPasswordService().Hash(password)
			if err != nil {
				return err
			}

			if name == "" {
				name = "Administrator"
			}
			now := time.Now()
			account := &model.Account{
				ID:           xid.New().String(),
				Name:         name,
				Email:        email,
				PasswordHash: hash,
				Role:         model.RoleAdmin,
				AuthProvider: model.ProviderLocal,
				CreatedAt:    now,
				LastLoginAt:  now,
			}
			if err := accounts.Create(ctx, account); err != nil {
				return err
			}

			fmt.Printf("created admin account %s (%s)\n", email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	return cmd
}

// seedCmd loads a small published catalog for development, owned by a
// seed librarian account.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the catalog with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			accounts := sqliteRepo.NewAccountRepo(db)
			books := sqliteRepo.NewBookRepo(db)
			ctx := context.Background()

			librarian, err := accounts.GetByEmail(ctx, "librarian@booknest.local")
			if errors.Is(err, apperror.ErrNotFound) {
				hash, hashErr := auth.NewPasswordService().Hash("librarian")
				if hashErr != nil {
					return hashErr
				}
				now := time.Now()
				librarian = &model.Account{
					ID:           xid.New().String(),
					Name:         "Seed Librarian",
					Email:        "librarian@booknest.local",
					PasswordHash: hash,
					Role:         model.RoleLibrarian,
					AuthProvider: model.ProviderLocal,
					CreatedAt:    now,
					LastLoginAt:  now,
				}
				if err := accounts.Create(ctx, librarian); err != nil {
					return err
				}
				logger.Info("created seed librarian", "email", librarian.Email)
			} else if err != nil {
				return err
			}

			seeds := []struct {
				title, author, category, price string
			}{
				{"The Go Programming Language", "Alan A. A. Donovan", "Non-Fiction", "39.99"},
				{"Dune", "Frank Herbert", "Science Fiction", "16.99"},
				{"The Name of the Wind", "Patrick Rothfuss", "Fantasy", "14.50"},
				{"Gone Girl", "Gillian Flynn", "Thriller", "12.00"},
				{"Educated", "Tara Westover", "Biography", "18.25"},
			}

			created := 0
			for _, seed := range seeds {
				price, err := decimal.NewFromString(seed.price)
				if err != nil {
					return err
				}
				now := time.Now()
				book := &model.Book{
					ID:        xid.New().String(),
					Title:     seed.title,
					Author:    seed.author,
					Category:  seed.category,
					Price:     price,
					Language:  "English",
					Status:    model.BookPublished,
					OwnerID:   librarian.ID,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := books.Create(ctx, book); err != nil {
					return err
				}
				created++
			}

			fmt.Printf("seeded %d books\n", created)
			return nil
		},
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
