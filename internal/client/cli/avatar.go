package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (c *Cli) newAvatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage the profile picture",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set FILE",
			Short: "Upload a PNG or JPEG image (up to 1 MB)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				sess, client, err := c.session(ctx)
				if err != nil {
					return err
				}

				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open image: %w", err)
				}
				defer func() { _ = f.Close() }()

				if err := client.UploadAvatar(ctx, sess.Token, filepath.Base(args[0]), f); err != nil {
					return c.checkAuth(ctx, err)
				}

				c.io.Println("✓ Avatar uploaded.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the profile picture",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()

				sess, client, err := c.session(ctx)
				if err != nil {
					return err
				}

				if err := client.DeleteAvatar(ctx, sess.Token); err != nil {
					return c.checkAuth(ctx, err)
				}

				c.io.Println("✓ Avatar removed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "get FILE",
			Short: "Download the profile picture as PNG",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				sess, client, err := c.session(ctx)
				if err != nil {
					return err
				}

				data, err := client.Avatar(ctx, sess.UserID)
				if err != nil {
					return err
				}

				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return fmt.Errorf("failed to write image: %w", err)
				}

				c.io.Printf("✓ Avatar saved to %s (%d bytes)\n", args[0], len(data))
				return nil
			},
		},
	)

	return cmd
}
