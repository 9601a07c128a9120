package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"taskpilot/internal/api"
	"taskpilot/internal/app"
	"taskpilot/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	repoURL = "https://github.com/taskpilot/taskpilot"
)

func newApplication() (*app.Application, error) {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	return app.NewApplication(cfg, nil)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func main() {
	root := &cobra.Command{
		Use:     "taskpilot",
		Short:   "TaskPilot - run and watch agent sessions",
		Long:    "TaskPilot is a client for the TaskPilot agent backend.\n\nUse without arguments for the interactive TUI, or with subcommands for scripted use.\n\nFor more information, visit: " + repoURL,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Printf("TaskPilot v%s\n", version)
				fmt.Printf("Repository: %s\n", repoURL)
				return nil
			}

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			p := tea.NewProgram(tui.New(application), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return err
			}
			return nil
		},
	}
	root.Flags().BoolP("version", "v", false, "Print version information")

	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Start a session and stream its progress",
		Long:  "Start a new agent session for the task and poll it until it finishes.\n\nExamples:\n  - taskpilot run \"Summarize the quarterly report\"\n  - taskpilot run --detach \"Draft a reply to the vendor\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			syncer := application.NewSyncer()
			id, err := syncer.Start(ctx, args[0])
			if err != nil {
				if err == api.ErrInsufficientBalance {
					return fmt.Errorf("insufficient balance: reload your balance and try again")
				}
				return err
			}
			fmt.Printf("session %s started\n", id)
			if runDetach {
				return nil
			}

			var lastStep int
			var runErr error
			syncer.Run(ctx, application.Config.PollInterval(), func(s *api.Session) {
				for i, msg := range s.Messages {
					if msg.Role != "assistant" || i < lastStep {
						continue
					}
					lastStep = i + 1
					fmt.Printf("[%s] %s\n", tui.StepLabel(s.Messages, i), firstLine(msg.Content))
				}
				if s.Status == api.StatusHumanInput {
					fmt.Println("the agent is waiting for input; open the TUI to answer")
				}
			}, func(err error) {
				runErr = err
			})
			if runErr != nil {
				return runErr
			}
			fmt.Printf("session %s finished: %s\n", id, tui.StatusLabel(syncer.Status()))
			return nil
		},
	}
	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "Start the session and exit without watching")
	root.AddCommand(runCmd)

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List your sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			page, err := application.Client.ListSessions(ctx, sessionsPage, sessionsLimit, api.SessionStatus(sessionsStatus))
			if err != nil {
				return err
			}
			for _, s := range page.Sessions {
				name := s.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("%-36s  %-12s  $%.2f  %s\n", s.ID, tui.StatusLabel(s.Status), s.Cost, name)
			}
			if sessionsPage < page.TotalPages {
				fmt.Printf("(page %d of %d)\n", sessionsPage, page.TotalPages)
			}
			return nil
		},
	}
	sessionsCmd.Flags().StringVarP(&sessionsStatus, "status", "s", "", "Filter by status: active|humanInput|completed|failed|stopped")
	sessionsCmd.Flags().IntVarP(&sessionsPage, "page", "p", 1, "Page to list")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 12, "Sessions per page")
	root.AddCommand(sessionsCmd)

	stopCmd := &cobra.Command{
		Use:   "stop [session-id]",
		Short: "Stop a running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			syncer := application.NewSyncer()
			syncer.Attach(args[0])
			if err := syncer.Stop(ctx); err != nil {
				return err
			}
			fmt.Printf("session %s stopped\n", args[0])
			return nil
		},
	}
	root.AddCommand(stopCmd)

	loginCmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Store a bearer token and verify it",
		Long:  "Store a bearer token from the identity provider and verify it.\n\nFirst sign-in for an account needs the provider and email so the backend\ncan record the login and create the user record.\n\nExamples:\n  - taskpilot login <token>\n  - taskpilot login <token> --provider apple --email me@example.com",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			user, err := application.SignIn(ctx, args[0], loginProvider, loginEmail)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Printf("signed in as %s\n", user.Email)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&loginProvider, "provider", "", "Identity provider that issued the token (apple|google)")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email, used to create the record on first sign-in")
	root.AddCommand(loginCmd)

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Users.Refresh(ctx); err != nil {
				return err
			}
			user := application.Users.User()
			fmt.Printf("email:    %s\n", user.Email)
			fmt.Printf("balance:  $%.2f\n", user.Balance)
			if user.Plan != "" {
				fmt.Printf("plan:     %s\n", user.Plan)
			}
			fmt.Printf("notifications: email=%v mobile=%v\n",
				user.NotificationSettings.Email, user.NotificationSettings.Mobile)
			return nil
		},
	}
	root.AddCommand(userCmd)

	notificationsCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Update notification preferences",
		Long:  "Update notification delivery preferences.\n\nExamples:\n  - taskpilot notifications --email=true --mobile=false",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Users.Refresh(ctx); err != nil {
				return err
			}
			settings := application.Users.User().NotificationSettings
			if cmd.Flags().Changed("email") {
				settings.Email = notifyEmail
			}
			if cmd.Flags().Changed("mobile") {
				settings.Mobile = notifyMobile
			}
			if err := application.Users.SetNotifications(ctx, settings); err != nil {
				return err
			}
			fmt.Printf("notifications: email=%v mobile=%v\n", settings.Email, settings.Mobile)
			return nil
		},
	}
	notificationsCmd.Flags().BoolVar(&notifyEmail, "email", false, "Enable or disable email notifications")
	notificationsCmd.Flags().BoolVar(&notifyMobile, "mobile", false, "Enable or disable mobile notifications")
	root.AddCommand(notificationsCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TaskPilot v%s\n", version)
			fmt.Printf("Repository: %s\n", repoURL)
		},
	}
	root.AddCommand(versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var (
	runDetach      bool
	sessionsStatus string
	sessionsPage   int
	sessionsLimit  int
	loginProvider  string
	loginEmail     string
	notifyEmail    bool
	notifyMobile   bool
)
