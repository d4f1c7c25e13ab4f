// Command storefront is a terminal front-end for the Foodi storefront. It
// drives the same client packages a graphical front-end would embed.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/cache"
	"github.com/foodi-storefront/api/internal/config"
	"github.com/foodi-storefront/api/internal/identity"
	"github.com/foodi-storefront/api/internal/session"
	"github.com/foodi-storefront/api/internal/ui"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: storefront <command> [flags] [args]

commands:
  login     -email E [-name N]     sign in and store the access token
  logout                           sign out and forget the token
  profile   -name N [-photo URL]   change your display name
  menu      [-search Q] [-category C] [-sort S] [-sale]
  cart      [list|add ID [-qty N]|inc ID|dec ID|rm ID]
  checkout  -phone P -address A [-name N] [-district D] [-province P] [-note N]
  orders                           list your orders
  admin     orders [-watch] | status ID STATUS | delete-order ID |
            users | promote EMAIL | delete-user EMAIL |
            menu-add -name N -category C -price P [...] | menu-rm ID`

type app struct {
	cfg       *config.Config
	public    *apiclient.Public
	secure    *apiclient.Secure
	manager   *identity.Manager
	guard     *session.Guard
	notifier  ui.Notifier
	navigator terminalNavigator
	confirmer ui.Confirmer
	profile   string
	redis     *redis.Client
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config.Load())
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	defer a.close()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "login":
		runErr = a.login(ctx, args)
	case "logout":
		runErr = a.logout(ctx)
	case "profile":
		runErr = a.updateProfile(ctx, args)
	case "menu":
		runErr = a.menu(ctx, args)
	case "cart":
		runErr = a.cart(ctx, args)
	case "checkout":
		runErr = a.checkout(ctx, args)
	case "orders":
		runErr = a.orders(ctx)
	case "admin":
		runErr = a.admin(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return
		}
		log.Fatalf("ERROR: %v", runErr)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		notifier: ui.LogNotifier{},
		profile:  cfg.TokenFile + ".subject",
	}
	a.confirmer = ui.ConfirmFunc(a.confirm)

	store, err := a.tokenStore(ctx)
	if err != nil {
		return nil, err
	}

	a.public = apiclient.NewPublic(cfg.APIBaseURL, cfg.RequestTimeout)
	a.manager = identity.NewManager(a.public, store)
	a.guard = session.NewGuard(a.manager, a.notifier, a.navigator)
	a.secure = a.public.Secure(a.manager, a.guard)

	if err := a.restore(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// tokenStore selects Redis when REDIS_URL is set, so several terminals can
// share one session, and a local file otherwise.
func (a *app) tokenStore(ctx context.Context) (identity.TokenStore, error) {
	if a.cfg.RedisURL == "" {
		return identity.NewFileTokenStore(a.cfg.TokenFile), nil
	}
	client, err := cache.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect token store: %w", err)
	}
	a.redis = client
	return identity.NewRedisTokenStore(client, "foodi:storefront"), nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// restore re-adopts the subject recorded by the last login together with its
// stored token.
func (a *app) restore(ctx context.Context) error {
	b, err := os.ReadFile(a.profile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	email, name, _ := strings.Cut(strings.TrimSpace(string(b)), "\t")
	if email == "" {
		return nil
	}
	if _, err := a.manager.Restore(ctx, email, name); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func (a *app) saveProfile(email, name string) error {
	if err := os.WriteFile(a.profile, []byte(email+"\t"+name+"\n"), 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (a *app) confirm(title, text string) bool {
	fmt.Printf("%s\n%s [y/N]: ", title, text)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// terminalNavigator tells the user which command reaches the requested page.
type terminalNavigator struct{}

func (terminalNavigator) ToLogin(returnTo string) {
	if returnTo == "" {
		fmt.Println("-> run: storefront login -email <you@example.com>")
		return
	}
	fmt.Printf("-> run: storefront login -email <you@example.com>, then: storefront %s\n", returnTo)
}

func (terminalNavigator) ToCart() {
	fmt.Println("-> run: storefront cart")
}
