package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/memorylane/internal/client/client"
	"github.com/dmitrijs2005/memorylane/internal/netx"
)

var uploadToPresignedURL = netx.UploadToS3PresignedURL

func loginCmd(a *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			if email == "" {
				v, err := GetSimpleText(a.in, "Email", a.out)
				if err != nil {
					return err
				}
				email = v
			}
			pw, err := GetPassword(a.out)
			if err != nil {
				return err
			}
			defer wipe(pw)

			s, resolved, err := a.httpClient().Login(ctx, email, pw)
			if err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return err
			}
			if err := client.SaveSession(a.cfg.SessionFile, s); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			fmt.Fprintf(a.out, "Logged in as %s\n", s.Email)
			if resolved > 0 {
				fmt.Fprintf(a.out, "%d pending invitation(s) are now linked to your account\n", resolved)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func uploadCmd(a *App) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print the key to use as a capsule item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			s, err := client.LoadSession(a.cfg.SessionFile)
			if err != nil {
				if errors.Is(err, client.ErrNoSession) {
					return errors.New("not logged in, run capsulectl login first")
				}
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}

			api := a.httpClient().WithSession(s)
			api.OnRefresh = func(s *client.Session) {
				if err := client.SaveSession(a.cfg.SessionFile, s); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not save refreshed session: %v\n", err)
				}
			}

			target, err := api.PresignUpload(ctx, contentType)
			if err != nil {
				return fmt.Errorf("presign upload: %w", err)
			}
			if err := a.upload(ctx, target.URL, contentType, data); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s uploaded (%s, %d bytes)\n", filepath.Base(args[0]), contentType, len(data))
			fmt.Fprintln(a.out, target.Key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type (detected from the file when empty)")
	return cmd
}
