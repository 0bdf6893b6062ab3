package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in and store the session token",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var auth usecase.AuthUsecase
		return runWith(func(ctx context.Context) error {
			req, err := promptCredentials(cmd, args)
			if err != nil {
				return err
			}
			user, err := auth.Login(ctx, req)
			if err != nil {
				return err
			}
			cmd.Printf("Signed in as %s (id %d)\n", user.Username, user.ID)
			return nil
		}, &auth)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		var auth usecase.AuthUsecase
		return runWith(func(ctx context.Context) error {
			if err := auth.Logout(ctx); err != nil {
				return err
			}
			cmd.Println("Signed out")
			return nil
		}, &auth)
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func promptCredentials(cmd *cobra.Command, args []string) (models.LoginRequest, error) {
	var req models.LoginRequest
	in := bufio.NewReader(cmd.InOrStdin())

	if len(args) > 0 {
		req.Email = args[0]
	} else {
		cmd.Print("Email: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return req, fmt.Errorf("read email: %w", err)
		}
		req.Email = strings.TrimSpace(line)
	}

	cmd.Print("Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return req, fmt.Errorf("read password: %w", err)
		}
		req.Password = string(pw)
	} else {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return req, fmt.Errorf("read password: %w", err)
		}
		req.Password = strings.TrimRight(line, "\r\n")
	}

	if req.Email == "" || req.Password == "" {
		return req, errors.New("email and password are required")
	}
	return req, nil
}
