// Command issue-token mints a dashboard bearer token signed with the configured secret.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sifan077/MailPulse/config"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/http/util"
	flag "github.com/spf13/pflag"
)

func main() {
	user := flag.StringP("user", "u", "", "user id the token identifies")
	admin := flag.BoolP("admin", "a", false, "grant administrator scope")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	if err := run(*user, *admin, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func run(user string, admin bool, ttl time.Duration) error {
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return util.ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	tokens := util.NewIdentityTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, ttl)
	token, err := tokens.Issue(model.Caller{UserID: user, IsAdmin: admin})
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
