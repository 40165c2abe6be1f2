package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend and save the credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if e.cfg.Offline {
			fmt.Println("Offline mode needs no sign in.")
			return nil
		}

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("EDUBOT_PASSWORD")
		}
		in := bufio.NewReader(os.Stdin)
		if email == "" {
			if email, err = prompt(in, "Email: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = promptSecret(in, "Password: "); err != nil {
				return err
			}
		}

		client, err := e.client(nil)
		if err != nil {
			return err
		}
		res, err := client.Login(cmd.Context(), content.Credentials{Email: email, Password: password})
		if err != nil {
			if api.KindOf(err) == api.KindAuth {
				return errors.New("incorrect email or password")
			}
			return errors.New(api.Message(err))
		}

		sc := session.NewSessionContext()
		if err := sc.SetToken(res.Token); err != nil {
			return err
		}
		sc.SetRole(res.Role)
		err = e.store.CredentialRepo().Save(cmd.Context(), store.Credential{
			APIURL: e.apiURL(),
			Token:  res.Token,
			Email:  sc.Email(),
			Role:   string(sc.Role()),
		})
		if err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		fmt.Printf("Signed in as %s (%s).\n", sc.DisplayName(), sc.Role())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.store.CredentialRepo().Delete(cmd.Context(), e.apiURL()); err != nil {
			return fmt.Errorf("delete credential: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		sc := session.NewSessionContext()
		svc, err := e.service(cmd.Context(), sc)
		if err != nil {
			return err
		}

		var (
			role    content.Role
			history []content.HistoryEntry
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var err error
			role, err = svc.GetRole(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			history, err = svc.ListHistory(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return errors.New(api.Message(err))
		}

		fmt.Printf("User:     %s\n", sc.DisplayName())
		fmt.Printf("Email:    %s\n", sc.Email())
		fmt.Printf("Role:     %s\n", role)
		fmt.Printf("Backend:  %s\n", e.apiURL())
		if exp := sc.Expires(); !exp.IsZero() {
			fmt.Printf("Expires:  %s\n", exp.Local().Format("2006-01-02 15:04"))
		}
		fmt.Printf("Lessons:  %d\n", len(history))
		return nil
	},
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(in *bufio.Reader, label string) (string, error) {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(fd) {
		return prompt(in, label)
	}
	fmt.Print(label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (or EDUBOT_PASSWORD; prompted when empty)")
}
