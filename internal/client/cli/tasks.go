package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/tasktracker/internal/client/api"
	"github.com/iudanet/tasktracker/internal/client/storage"
	pkgapi "github.com/iudanet/tasktracker/pkg/api"
)

func (c *Cli) newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		c.newTasksListCmd(),
		c.newTasksAddCmd(),
		c.newTasksShowCmd(),
		c.newTasksSetCompletedCmd("done", "Mark a task as completed", true),
		c.newTasksSetCompletedCmd("undo", "Mark a task as not completed", false),
		c.newTasksRemoveCmd(),
	)

	return cmd
}

func (c *Cli) newTasksListCmd() *cobra.Command {
	var done, pending bool
	var params pkgapi.TaskListParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks of the current user.

Rows are numbered; the number can be used instead of the task ID
in other commands until the next listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case done && pending:
				return fmt.Errorf("--done and --pending are mutually exclusive")
			case done:
				params.Completed = &done
			case pending:
				completed := false
				params.Completed = &completed
			}
			return c.runTasksList(cmd.Context(), params)
		},
	}

	cmd.Flags().BoolVar(&done, "done", false, "only completed tasks")
	cmd.Flags().BoolVar(&pending, "pending", false, "only tasks that are not completed")
	cmd.Flags().StringVar(&params.SortBy, "sort", "", "sort order, e.g. createdAt_desc or description_asc")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum number of tasks")
	cmd.Flags().IntVar(&params.Skip, "skip", 0, "number of tasks to skip")

	return cmd
}

func (c *Cli) runTasksList(ctx context.Context, params pkgapi.TaskListParams) error {
	sess, client, err := c.session(ctx)
	if err != nil {
		return err
	}

	tasks, err := client.ListTasks(ctx, sess.Token, params)
	if err != nil {
		return c.checkAuth(ctx, err)
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	if err := c.store.SaveTaskRefs(ctx, ids); err != nil {
		return fmt.Errorf("failed to save task list: %w", err)
	}

	if len(tasks) == 0 {
		c.io.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tDONE\tDESCRIPTION\tCREATED\tID")
	for i, t := range tasks {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1, checkbox(t.Completed), t.Description, t.CreatedAt.Local().Format(time.DateTime), t.ID)
	}
	return w.Flush()
}

func (c *Cli) newTasksAddCmd() *cobra.Command {
	var done bool

	cmd := &cobra.Command{
		Use:   "add DESCRIPTION...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, client, err := c.session(ctx)
			if err != nil {
				return err
			}

			task, err := client.CreateTask(ctx, sess.Token, pkgapi.CreateTaskRequest{
				Description: strings.Join(args, " "),
				Completed:   done,
			})
			if err != nil {
				return c.checkAuth(ctx, err)
			}

			c.io.Printf("✓ Task added: %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&done, "done", false, "create the task as completed")

	return cmd
}

func (c *Cli) newTasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID|#",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, client, id, err := c.taskTarget(ctx, args[0])
			if err != nil {
				return err
			}

			task, err := client.GetTask(ctx, sess.Token, id)
			if err != nil {
				return c.taskError(ctx, err, args[0])
			}

			c.io.Printf("ID:          %s\n", task.ID)
			c.io.Printf("Description: %s\n", task.Description)
			c.io.Printf("Completed:   %s\n", yesNo(task.Completed))
			c.io.Printf("Created:     %s\n", task.CreatedAt.Local().Format(time.RFC3339))
			c.io.Printf("Updated:     %s\n", task.UpdatedAt.Local().Format(time.RFC3339))
			return nil
		},
	}
}

func (c *Cli) newTasksSetCompletedCmd(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID|#",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, client, id, err := c.taskTarget(ctx, args[0])
			if err != nil {
				return err
			}

			task, err := client.UpdateTask(ctx, sess.Token, id, pkgapi.UpdateTaskRequest{Completed: &completed})
			if err != nil {
				return c.taskError(ctx, err, args[0])
			}

			c.io.Printf("%s %s\n", checkbox(task.Completed), task.Description)
			return nil
		},
	}
}

func (c *Cli) newTasksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID|#",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, client, id, err := c.taskTarget(ctx, args[0])
			if err != nil {
				return err
			}

			task, err := client.DeleteTask(ctx, sess.Token, id)
			if err != nil {
				return c.taskError(ctx, err, args[0])
			}

			c.io.Printf("✓ Task deleted: %s\n", task.Description)
			return nil
		},
	}
}

// taskTarget возвращает сессию, клиент и ID задачи по ID или номеру строки
func (c *Cli) taskTarget(ctx context.Context, ref string) (*storage.Session, *api.Client, string, error) {
	sess, client, err := c.session(ctx)
	if err != nil {
		return nil, nil, "", err
	}

	id, err := c.store.ResolveTaskRef(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrTaskRefNotFound) {
			return nil, nil, "", fmt.Errorf("no task #%s in the last listing, run 'tasktracker tasks list' first", ref)
		}
		return nil, nil, "", fmt.Errorf("failed to resolve task: %w", err)
	}

	return sess, client, id, nil
}

func (c *Cli) taskError(ctx context.Context, err error, ref string) error {
	if api.IsNotFound(err) {
		return fmt.Errorf("task %s not found", ref)
	}
	return c.checkAuth(ctx, err)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
