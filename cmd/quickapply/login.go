package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/quickapply/pkg/login"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the browser session",
		Long: `Sign in with the configured credentials and save the browser session.

The browser window stays open while sign-in is verified, so a CAPTCHA or
2FA prompt can be completed by hand within login.verification_window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLogin(cmd)
		},
	}
}

func (a *app) runLogin(cmd *cobra.Command) error {
	if err := a.cfg.RequireCredentials(); err != nil {
		return err
	}
	profile, err := a.profile()
	if err != nil {
		return err
	}

	l, err := a.launch()
	if err != nil {
		return err
	}
	defer a.shutdown(l)

	sess, err := l.Launch(cmd.Context(), "login", a.stateStore())
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	defer a.closeSession(sess)

	m := login.NewMachine(profile, a.recorder(), a.logger.With("login"), a.cfg.LoginOptions())
	res, err := m.Run(cmd.Context(), sess, a.cfg.LoginCredentials())
	if res != nil {
		printLogin(cmd.OutOrStdout(), res)
	}
	return err
}
