package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/output"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage authentication",
	GroupID: "system",
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s required", field)
		}
		return nil
	}
}

// promptCredentials asks for any of username/password that are empty.
func promptCredentials(username, password *string) error {
	var fields []huh.Field
	if *username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(username).Validate(required("username")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password).Validate(required("password")))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the tock backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if err := promptCredentials(&username, &password); err != nil {
			output.Error("%v", err)
			return err
		}

		token, err := a.client.Login(ctx, username, password)
		if err != nil {
			return apiError("login", err)
		}
		if err := a.settings.AuthToken.Set(token); err != nil {
			output.Error("save token: %v", err)
			return err
		}

		user, err := a.client.Me(ctx)
		if err != nil {
			return apiError("fetch user", err)
		}
		if err := a.settings.User.Set(user); err != nil {
			output.Error("save user: %v", err)
			return err
		}

		// Flags belong to the previous identity.
		a.cache.Clear()
		a.cache.LoadFeatures(ctx)

		output.Success("Logged in as %s", user.Username)
		return nil
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}

		req := &apiclient.RegisterRequest{}
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.FirstName, _ = cmd.Flags().GetString("first-name")
		req.LastName, _ = cmd.Flags().GetString("last-name")

		if req.FirstName == "" && req.LastName == "" && (req.Username == "" || req.Password == "") {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().Title("First name").Value(&req.FirstName),
					huh.NewInput().Title("Last name").Value(&req.LastName),
				),
			)
			if err := form.Run(); err != nil {
				output.Error("%v", err)
				return err
			}
		}
		if err := promptCredentials(&req.Username, &req.Password); err != nil {
			output.Error("%v", err)
			return err
		}

		if err := a.client.Register(cmd.Context(), req); err != nil {
			return apiError("register", err)
		}
		output.Success("Registered %s. Run: tock auth login", req.Username)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if err := a.settings.Logout(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		a.cache.Clear()
		fmt.Println("Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}

		if !a.settings.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}

		fmt.Printf("Server: %s\n", a.settings.ServerURL())
		fmt.Printf("Token:  %s\n", output.MaskToken(a.settings.Token()))

		verify, _ := cmd.Flags().GetBool("verify")
		if !verify {
			if u := a.settings.User.Get(); u != nil {
				fmt.Printf("User:   %s\n", u.Username)
			}
			return nil
		}

		user, err := a.client.Me(cmd.Context())
		if errors.Is(err, apiclient.ErrUnauthorized) {
			output.Warning("token rejected by server")
			return err
		}
		if err != nil {
			return apiError("verify", err)
		}
		fmt.Printf("User:   %s (%s %s)\n", user.Username, user.FirstName, user.LastName)
		return nil
	},
}

func init() {
	authLoginCmd.Flags().StringP("username", "u", "", "Username (prompted if empty)")
	authLoginCmd.Flags().StringP("password", "p", "", "Password (prompted if empty)")

	authRegisterCmd.Flags().StringP("username", "u", "", "Username")
	authRegisterCmd.Flags().StringP("password", "p", "", "Password")
	authRegisterCmd.Flags().String("first-name", "", "First name")
	authRegisterCmd.Flags().String("last-name", "", "Last name")

	authStatusCmd.Flags().Bool("verify", false, "Check the token against the server")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
