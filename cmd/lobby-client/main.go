// lobby-client is the command-line front end for the lobby registry client:
// account lifecycle, friend codes, lobby operations, and a watch mode that
// keeps the lobby list fresh.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchlobby/go-client/internal/authclient"
	"matchlobby/go-client/internal/config"
	"matchlobby/go-client/internal/friendcode"
	"matchlobby/go-client/internal/identity"
	"matchlobby/go-client/internal/kvstore"
	"matchlobby/go-client/internal/lobbyclient"
	"matchlobby/go-client/internal/platform/privacylog"
	"matchlobby/go-client/internal/session"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const usage = `usage: lobby-client [flags] <command> [args]

commands:
  signup   -u <username>                       create an account and log in
  login    -u <username> -p <password>         log in with a password
  recover  -u <username> -phrase "<words>"     log in with a recovery phrase
  wallet-login -u <username>                   log in with an external signer via stdin
  logout                                       drop the current session
  whoami                                       show the current identity
  friends  list | add -code <c> | remove -key <k> | code
  lobbies  list | create [-private] [-invite k,k] | join -id <id> |
           leave -id <id> | invite -id <id> -keys k,k
  watch    [-metrics-addr <addr>]              poll the lobby list until interrupted
`

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to client.yaml (optional)")
	serverURL := flag.String("server", "", "registry base URL override")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if *showVersion {
		fmt.Printf("lobby-client version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadFromPath(*configPath)
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}

	log := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	app, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lobby-client: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lobby-client: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      config.Config
	log      *slog.Logger
	sessions *session.Store
	friends  *friendcode.List
	auth     *authclient.Authenticator
	lobbies  *lobbyclient.Client
}

func newApp(cfg config.Config, log *slog.Logger) (*app, error) {
	var storage kvstore.Store
	if cfg.StoragePath != "" {
		encrypted, err := kvstore.OpenEncryptedFile(cfg.StoragePath, cfg.StoragePassphrase)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		storage = encrypted
	} else {
		storage = kvstore.NewMemory()
	}

	sessions := session.NewStore(storage, log)
	if err := sessions.Bootstrap(); err != nil {
		return nil, err
	}
	friends := friendcode.NewList(storage, log)
	if err := friends.Bootstrap(); err != nil {
		return nil, err
	}

	deriver := identity.NewDeriver()
	if err := deriver.Init(); err != nil {
		return nil, err
	}

	endpoint := config.NewEndpoint(cfg.ServerURL)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &app{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		friends:  friends,
		auth:     authclient.New(endpoint, deriver, sessions, httpClient, log),
		lobbies:  lobbyclient.New(endpoint, sessions, httpClient, log),
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "recover":
		return a.recover(ctx, args)
	case "wallet-login":
		return a.walletLogin(ctx, args)
	case "logout":
		return a.auth.Logout()
	case "whoami":
		return a.whoami()
	case "friends":
		return a.friendsCommand(args)
	case "lobbies":
		return a.lobbiesCommand(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cred, err := identity.CreateAccount(*username)
	if err != nil {
		return err
	}
	if err := a.auth.Login(ctx, cred); err != nil {
		return err
	}

	fmt.Printf("account created and logged in as %s\n\n", cred.Username)
	fmt.Printf("recovery phrase (write it down, it is shown once):\n  %s\n", cred.Mnemonic)
	return a.whoami()
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cred := identity.Credential{Username: *username, Secret: *password}
	if err := a.auth.Login(ctx, cred); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", *username)
	return nil
}

func (a *app) recover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	phrase := fs.String("phrase", "", "recovery phrase")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cred, err := identity.RecoverAccount(*username, *phrase)
	if err != nil {
		return err
	}
	if err := a.auth.Login(ctx, cred); err != nil {
		return err
	}
	fmt.Printf("recovered and logged in as %s\n", *username)
	return nil
}

func (a *app) walletLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wallet-login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	signer := &stdinSigner{in: bufio.NewReader(os.Stdin)}
	if err := a.auth.WalletLogin(ctx, *username, signer); err != nil {
		return err
	}
	fmt.Printf("wallet login succeeded for %s\n", *username)
	return nil
}

// stdinSigner relays the exchange to an external wallet by hand: the operator
// pastes the wallet's public key, signs the printed challenge out of band,
// and pastes the signature back.
type stdinSigner struct {
	in *bufio.Reader
}

func (s *stdinSigner) PublicKeyB64() string {
	fmt.Print("wallet public key (base64): ")
	line, err := s.in.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func (s *stdinSigner) Sign(_ context.Context, message string) (string, error) {
	fmt.Printf("sign this challenge with the wallet:\n  %s\n", message)
	fmt.Print("signature (base64): ")
	line, err := s.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) whoami() error {
	snap := a.sessions.Snapshot()
	if !snap.IsLoggedIn() {
		fmt.Println("not logged in")
		return nil
	}
	if snap.Claims == nil {
		fmt.Println("logged in (token claims unavailable)")
		return nil
	}
	fmt.Printf("username:   %s\n", snap.Claims.Username)
	fmt.Printf("public key: %s\n", snap.Claims.Subject)
	if pub, err := base64.StdEncoding.DecodeString(snap.Claims.Subject); err == nil {
		if fp, err := identity.Fingerprint(pub); err == nil {
			fmt.Printf("fingerprint: %s\n", fp)
		}
	}
	if snap.IsWallet {
		fmt.Println("session:    wallet")
	}
	return nil
}

func (a *app) friendsCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("friends: missing subcommand (list, add, remove, code)")
	}
	switch args[0] {
	case "list":
		friends := a.friends.Friends()
		if len(friends) == 0 {
			fmt.Println("no friends yet")
			return nil
		}
		for _, f := range friends {
			fmt.Printf("%s  %s\n", f.Username, f.PublicKey)
		}
		return nil
	case "add":
		fs := flag.NewFlagSet("friends add", flag.ContinueOnError)
		code := fs.String("code", "", "friend code")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		friend, err := a.friends.Add(*code)
		if err != nil {
			return err
		}
		fmt.Printf("added %s\n", friend.Username)
		return nil
	case "remove":
		fs := flag.NewFlagSet("friends remove", flag.ContinueOnError)
		key := fs.String("key", "", "friend public key")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return a.friends.Remove(*key)
	case "code":
		snap := a.sessions.Snapshot()
		if snap.Claims == nil {
			return fmt.Errorf("friends code: log in first")
		}
		code, err := friendcode.Encode(snap.Claims.Username, snap.Claims.Subject)
		if err != nil {
			return err
		}
		fmt.Println(code)
		return nil
	default:
		return fmt.Errorf("friends: unknown subcommand %q", args[0])
	}
}

func (a *app) lobbiesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("lobbies: missing subcommand (list, create, join, leave, invite)")
	}
	switch args[0] {
	case "list":
		lobbies, err := a.lobbies.List(ctx)
		if err != nil {
			return err
		}
		if len(lobbies) == 0 {
			fmt.Println("no lobbies visible")
			return nil
		}
		printLobbies(lobbies)
		return nil
	case "create":
		fs := flag.NewFlagSet("lobbies create", flag.ContinueOnError)
		private := fs.Bool("private", false, "create a private lobby")
		invite := fs.String("invite", "", "comma-separated public keys to whitelist")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		id, err := a.lobbies.Create(ctx, *private, splitKeys(*invite))
		if err != nil {
			return err
		}
		fmt.Printf("created lobby %s\n", id)
		return nil
	case "join":
		id, err := lobbyIDArg(args[1:])
		if err != nil {
			return err
		}
		return a.lobbies.Join(ctx, id)
	case "leave":
		id, err := lobbyIDArg(args[1:])
		if err != nil {
			return err
		}
		// Populate the cache so ownership dispatch has data to work with.
		if _, err := a.lobbies.List(ctx); err != nil {
			return err
		}
		deleted, err := a.lobbies.LeaveOrDelete(ctx, id)
		if err != nil {
			return err
		}
		if deleted {
			fmt.Println("lobby deleted")
		} else {
			fmt.Println("left lobby")
		}
		return nil
	case "invite":
		fs := flag.NewFlagSet("lobbies invite", flag.ContinueOnError)
		rawID := fs.String("id", "", "lobby id")
		keys := fs.String("keys", "", "comma-separated public keys")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		id, err := uuid.Parse(*rawID)
		if err != nil {
			return fmt.Errorf("invalid lobby id: %w", err)
		}
		if _, err := a.lobbies.List(ctx); err != nil {
			return err
		}
		return a.lobbies.Invite(ctx, id, splitKeys(*keys))
	default:
		return fmt.Errorf("lobbies: unknown subcommand %q", args[0])
	}
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Warn("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	refresher := lobbyclient.NewRefresher(a.lobbies, a.cfg.RefreshInterval, a.log)
	refresher.Start(ctx)
	defer refresher.Stop()

	fmt.Printf("watching lobbies every %s, ctrl-c to stop\n", a.cfg.RefreshInterval)
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			printLobbies(a.lobbies.Cached())
		}
	}
}

func printLobbies(lobbies []lobbyclient.Lobby) {
	for _, l := range lobbies {
		visibility := "public"
		if l.IsPrivate {
			visibility = "private"
		}
		fmt.Printf("%s  %-10s %-7s players=%d owner=%s\n", l.ID, l.Status, visibility, len(l.Players), l.Owner)
	}
}

func lobbyIDArg(args []string) (uuid.UUID, error) {
	fs := flag.NewFlagSet("lobby id", flag.ContinueOnError)
	rawID := fs.String("id", "", "lobby id")
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(*rawID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid lobby id: %w", err)
	}
	return id, nil
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
