// Package cli реализует команды клиента трекера задач.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/tasktracker/internal/client/api"
	"github.com/iudanet/tasktracker/internal/client/iocli"
	"github.com/iudanet/tasktracker/internal/client/storage"
)

// Значения флагов по умолчанию
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultDBPath    = "tasktracker-client.db"
)

// Store локальное хранилище клиента
type Store interface {
	storage.SessionStorage
	storage.TaskRefStorage
	Close() error
}

// StoreOpener открывает локальное хранилище по пути
type StoreOpener func(ctx context.Context, path string) (Store, error)

// Cli состояние одного запуска клиента
type Cli struct {
	io        iocli.IO
	openStore StoreOpener
	store     Store
	serverURL string
	dbPath    string
	version   string
}

// New создает клиент. Хранилище открывается перед выполнением команды.
func New(io iocli.IO, openStore StoreOpener, version string) *Cli {
	return &Cli{
		io:        io,
		openStore: openStore,
		version:   version,
	}
}

// Execute выполняет команду с аргументами args и закрывает хранилище
func (c *Cli) Execute(ctx context.Context, args []string) error {
	cmd := c.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(c.io)
	cmd.SetErr(c.io)

	err := cmd.ExecuteContext(ctx)

	if c.store != nil {
		if cerr := c.store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close local database: %w", cerr)
		}
		c.store = nil
	}

	return err
}

// NewRootCmd создает корневую команду со всеми подкомандами
func (c *Cli) NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Task tracker command-line client",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.store != nil {
				return nil
			}
			store, err := c.openStore(cmd.Context(), c.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open local database: %w", err)
			}
			c.store = store
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.serverURL, "server", DefaultServerURL, "server URL")
	cmd.PersistentFlags().StringVar(&c.dbPath, "db", DefaultDBPath, "path to local database")

	cmd.AddCommand(
		c.newSignupCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newLogoutAllCmd(),
		c.newWhoamiCmd(),
		c.newSessionsCmd(),
		c.newDeleteAccountCmd(),
		c.newTasksCmd(),
		c.newAvatarCmd(),
	)

	return cmd
}

// session возвращает сохраненную сессию и клиент для ее сервера
func (c *Cli) session(ctx context.Context) (*storage.Session, *api.Client, error) {
	sess, err := c.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, nil, fmt.Errorf("not authenticated. Please run 'tasktracker login' first")
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	serverURL := sess.ServerURL
	if serverURL == "" {
		serverURL = c.serverURL
	}

	return sess, api.NewClient(serverURL), nil
}

// checkAuth удаляет локальную сессию, если сервер больше не принимает токен
func (c *Cli) checkAuth(ctx context.Context, err error) error {
	if !api.IsUnauthorized(err) {
		return err
	}
	if derr := c.store.DeleteSession(ctx); derr != nil && !errors.Is(derr, storage.ErrSessionNotFound) {
		return errors.Join(err, derr)
	}
	return fmt.Errorf("session is no longer valid. Please run 'tasktracker login' again")
}
