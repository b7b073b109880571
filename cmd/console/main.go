// Package main provides the console CLI: a thin operator frontend over the
// resource stores and the session controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apiforge/console-core/pkg/config"
	"github.com/apiforge/console-core/pkg/generate"
	"github.com/apiforge/console-core/pkg/health"
	"github.com/apiforge/console-core/pkg/httpclient"
	"github.com/apiforge/console-core/pkg/profile"
	"github.com/apiforge/console-core/pkg/session"
	"github.com/apiforge/console-core/pkg/session/firebase"
	"github.com/apiforge/console-core/pkg/tunnel"
)

// Version is the CLI version, overridden at build time.
var Version = "dev"

// passwordEnv supplies the sign-in password so it never appears in argv.
const passwordEnv = "CONSOLE_PASSWORD"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath  string
	serverURL   string
	email       string
	showVersion bool
}

func parseFlags() cliOptions {
	opts := cliOptions{}
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.serverURL, "server", "", "API server URL (overrides config)")
	flag.StringVar(&opts.email, "email", "", "Sign in with this account before running the command")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	return opts
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func loadConfig(opts cliOptions) (*config.Config, error) {
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		if opts.serverURL != "" {
			cfg.Server.URL = opts.serverURL
		}
		return cfg, nil
	}
	if opts.serverURL == "" {
		return nil, fmt.Errorf("either -config or -server is required")
	}
	return &config.Config{Server: config.Server{URL: opts.serverURL}}, nil
}

func run() error {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("console version %s\n", Version)
		return nil
	}
	command := flag.Arg(0)
	if command == "" {
		return fmt.Errorf("usage: console [flags] health|tunnels|jobs|profiles")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := setupSignalHandler()
	client := httpclient.New(httpclient.WithTimeout(cfg.Server.Timeout()))

	var identity *session.Identity
	if opts.email != "" {
		identity, err = signIn(ctx, cfg, client, opts.email)
		if err != nil {
			return err
		}
	}

	return dispatch(ctx, command, cfg, client, identity)
}

// signIn authenticates through the identity provider and mirrors the
// credential into the request client's cookie jar, the way the dashboard
// does for its server-side route checks.
func signIn(ctx context.Context, cfg *config.Config, client *httpclient.Client, email string) (*session.Identity, error) {
	password := os.Getenv(passwordEnv)
	if password == "" {
		return nil, fmt.Errorf("%s is required to sign in", passwordEnv)
	}

	provider, err := firebase.New(firebase.Config{
		APIKey:      cfg.Auth.APIKey,
		IdentityURL: cfg.Auth.IdentityURL,
		TokenURL:    cfg.Auth.TokenURL,
		Client:      client,
	})
	if err != nil {
		return nil, err
	}

	sink, err := session.NewJarSink(client.Jar(), cfg.Server.URL)
	if err != nil {
		return nil, fmt.Errorf("building cookie sink: %w", err)
	}

	controller := session.NewController(provider, session.WithCookieSink(sink))
	if err := controller.Start(); err != nil {
		return nil, err
	}
	defer controller.Close()

	return controller.SignInWithEmail(ctx, email, password)
}

func dispatch(ctx context.Context, command string, cfg *config.Config, client *httpclient.Client, identity *session.Identity) error {
	switch command {
	case "health":
		probe := health.NewProbe(client, cfg.Server.URL)
		status, err := probe.Check(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil

	case "tunnels":
		st, err := tunnel.NewStore(client, cfg.Server.URL)
		if err != nil {
			return err
		}
		items, err := st.List(ctx, tunnel.Filter{}.Values())
		if err != nil {
			return err
		}
		for _, t := range items {
			fmt.Printf("%s\t%s\t%s://%s:%d\t%s\n", t.ID, t.Name, t.Protocol, t.Endpoint, t.Port, t.Status)
		}
		return nil

	case "jobs":
		if identity == nil {
			return fmt.Errorf("jobs requires -email (jobs are scoped per user)")
		}
		st, err := generate.NewStore(client, cfg.Server.URL)
		if err != nil {
			return err
		}
		items, err := st.List(ctx, generate.Filter{UserID: identity.UID}.Values())
		if err != nil {
			return err
		}
		for _, g := range items {
			fmt.Printf("%s\t%s\t%s\t%d\t%s\n", g.ID, g.Name, g.DataType, g.Count, g.Status)
		}
		return nil

	case "profiles":
		st, err := profile.NewStore(client, cfg.Server.URL)
		if err != nil {
			return err
		}
		items, err := st.List(ctx, nil)
		if err != nil {
			return err
		}
		for _, p := range items {
			fmt.Printf("%s\t%s\t%s\n", p.ID, p.Email, p.Name)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
