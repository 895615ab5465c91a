package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zwrong/Calendar-Agent/internal/profile"
	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/server"
	"github.com/zwrong/Calendar-Agent/server/middleware"
)

var (
	rootCmd = &cobra.Command{
		Use:   "calendar-agent",
		Short: `Manage your calendar in plain Chinese or English.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(viper.GetString("mode"))
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar agent over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	askCmd = &cobra.Command{
		Use:   "ask [command]",
		Short: "Run one command, or start an interactive prompt when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "))
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue an API bearer token signed with the configured API secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}
			return runToken(args[0], ttl)
		},
	}

	calendarsCmd = &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the configured account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalendars(cmd.Context())
		},
	}
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 5000)
	viper.SetDefault("store", "caldav")
	viper.SetDefault("session-store", "memory")
	viper.SetDefault("pm-through", 7)
	viper.SetDefault("config-dir", ".")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 5000, "port of server")
	rootCmd.PersistentFlags().String("store", "caldav", `calendar driver, can be "caldav" or "memory"`)
	rootCmd.PersistentFlags().String("session-store", "memory", `session backend, can be "memory" or "redis"`)
	rootCmd.PersistentFlags().String("timezone", "", "IANA timezone used to resolve relative times")
	rootCmd.PersistentFlags().Int("pm-through", 7, "last bare hour read as afternoon (0 keeps hours as written)")
	rootCmd.PersistentFlags().String("config-dir", ".", "directory holding config_private.json or config.json")

	for _, name := range []string{"mode", "addr", "port", "store", "session-store", "timezone", "pm-through", "config-dir"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("calendar")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")

	rootCmd.AddCommand(serveCmd, askCmd, calendarsCmd, tokenCmd)
}

func setupLogger(mode string) {
	if mode == "prod" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
		return
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})))
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:         viper.GetString("mode"),
		Addr:         viper.GetString("addr"),
		Port:         viper.GetInt("port"),
		Version:      version,
		Timezone:     viper.GetString("timezone"),
		Store:        viper.GetString("store"),
		SessionStore: viper.GetString("session-store"),
		PMThrough:    viper.GetInt("pm-through"),
	}
	if err := p.FromConfigFile(viper.GetString("config-dir")); err != nil {
		return nil, err
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func runServe(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	app, err := newApp(ctx, p)
	if err != nil {
		return err
	}

	s, err := server.NewServer(p, server.Dependencies{
		Agent:    app.agent,
		Sessions: app.sessions,
		Metrics:  app.metrics,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return err
	}
	printGreetings(p, s.Addr())

	<-ctx.Done()
	s.Shutdown(context.Background())
	return nil
}

func runAsk(ctx context.Context, command string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	app, err := newApp(ctx, p)
	if err != nil {
		return err
	}
	defer app.Close()

	sess := session.New(session.NewID())
	if command != "" {
		fmt.Println(app.agent.Handle(ctx, command, sess).Text)
		return nil
	}

	fmt.Println("📅 Calendar Agent (Ctrl+D to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp := app.agent.Handle(ctx, line, sess)
		sess.AppendTurn(line, resp.Text)
		fmt.Println(resp.Text)
	}
}

func runCalendars(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	app, err := newApp(ctx, p)
	if err != nil {
		return err
	}
	defer app.Close()

	tag := lang.Default
	if v := os.Getenv("LANG"); strings.HasPrefix(v, "en") {
		tag = lang.English
	}
	fmt.Println(app.agent.Calendars(ctx, tag).Text)
	return nil
}

func runToken(subject string, ttl time.Duration) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	if p.APISecret == "" {
		return errors.New("api secret is not configured (CALENDAR_API_SECRET)")
	}
	token, err := middleware.NewTokenAuth(p.APISecret).Issue(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printGreetings(p *profile.Profile, addr string) {
	if p.IsDev() {
		fmt.Printf("Development mode is enabled\n")
		fmt.Printf("Calendar store: %s, session store: %s, timezone: %s\n", p.Store, p.SessionStore, p.Timezone)
	}
	fmt.Printf("Calendar Agent %s started successfully!\n", p.Version)
	fmt.Printf("Listening on http://%s\n", addr)
	if p.APISecret == "" {
		fmt.Printf("API authentication is disabled; set CALENDAR_API_SECRET to require bearer tokens\n")
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
