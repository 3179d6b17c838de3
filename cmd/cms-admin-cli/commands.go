package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	redisstore "github.com/target/cms-admin/internal/adapters/redis"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/ports"
	"github.com/target/cms-admin/internal/service"
)

const commandTimeout = 30 * time.Second

type loginOptions struct {
	Email     string
	Remember  bool
	TokenFile string
}

type sessionOptions struct {
	TokenFile string
}

type canOptions struct {
	TokenFile string
	Role      domainauth.Role
}

type tokensOptions struct {
	Limit int
}

func parseLoginFlags(args []string, out io.Writer) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts loginOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.BoolVar(&opts.Remember, "remember", false, "Ask the backend for a long-lived credential")
	fs.StringVar(&opts.TokenFile, "token-file", "", "Credential file (defaults to the user config dir)")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return loginOptions{}, errors.New("--email is required")
	}
	return opts, nil
}

func parseSessionFlags(name string, args []string, out io.Writer) (sessionOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)

	var opts sessionOptions
	fs.StringVar(&opts.TokenFile, "token-file", "", "Credential file (defaults to the user config dir)")

	if err := fs.Parse(args); err != nil {
		return sessionOptions{}, err
	}
	return opts, nil
}

func parseCanFlags(args []string, out io.Writer) (canOptions, error) {
	fs := flag.NewFlagSet("can", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts canOptions
	fs.StringVar(&opts.TokenFile, "token-file", "", "Credential file (defaults to the user config dir)")

	if err := fs.Parse(args); err != nil {
		return canOptions{}, err
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return canOptions{}, errors.New("usage: can [--token-file path] <role>")
	}
	opts.Role = domainauth.Role(strings.TrimSpace(fs.Arg(0)))
	return opts, nil
}

func parseTokensFlags(args []string, out io.Writer) (tokensOptions, error) {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts tokensOptions
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum keys to list (0 for all)")

	if err := fs.Parse(args); err != nil {
		return tokensOptions{}, err
	}
	if opts.Limit < 0 {
		return tokensOptions{}, errors.New("--limit must be zero or positive")
	}
	return opts, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}
	password, err := readPassword(cmdCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	sess, err := cmdCtx.openSession(ctx, opts.TokenFile)
	if err != nil {
		return err
	}
	defer sess.Close()

	err = sess.Manager.Login(ctx, ports.LoginInput{Email: opts.Email, Password: password, RememberMe: opts.Remember})
	if err != nil {
		var loginErr *service.LoginError
		if errors.As(err, &loginErr) {
			return errors.New(loginErr.Message)
		}
		return err
	}
	identity := sess.Manager.Identity()
	return writef(cmdCtx.Out, "Signed in as %s <%s>\n", identity.Name, identity.Email)
}

// readPassword reads one line from the command input.
func readPassword(cmdCtx *commandContext) (string, error) {
	if err := writef(cmdCtx.Out, "Password: "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	if err := writef(cmdCtx.Out, "\n"); err != nil {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	opts, err := parseSessionFlags("whoami", args, cmdCtx.Out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	sess, err := cmdCtx.openSession(ctx, opts.TokenFile)
	if err != nil {
		return err
	}
	defer sess.Close()

	identity, err := requireIdentity(ctx, sess)
	if err != nil {
		return err
	}
	roles := "(none)"
	if len(identity.Roles) > 0 {
		roles = strings.Join(identity.Roles, ", ")
	}
	return writef(cmdCtx.Out, "%s <%s>\nID:    %d\nRoles: %s\n", identity.Name, identity.Email, identity.ID, roles)
}

func runLogout(cmdCtx *commandContext, args []string) error {
	opts, err := parseSessionFlags("logout", args, cmdCtx.Out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	sess, err := cmdCtx.openSession(ctx, opts.TokenFile)
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Manager.Logout(ctx, "")
	return writef(cmdCtx.Out, "Signed out.\n")
}

func runCan(cmdCtx *commandContext, args []string) error {
	opts, err := parseCanFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	sess, err := cmdCtx.openSession(ctx, opts.TokenFile)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err = requireIdentity(ctx, sess); err != nil {
		return err
	}
	if !sess.Manager.Authorize(opts.Role) {
		if werr := writef(cmdCtx.Out, "denied: %s\n", opts.Role); werr != nil {
			return werr
		}
		return fmt.Errorf("%w: role %q", errDenied, opts.Role)
	}
	return writef(cmdCtx.Out, "allowed: %s\n", opts.Role)
}

func runSections(cmdCtx *commandContext, args []string) error {
	opts, err := parseSessionFlags("sections", args, cmdCtx.Out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	sess, err := cmdCtx.openSession(ctx, opts.TokenFile)
	if err != nil {
		return err
	}
	defer sess.Close()

	identity, err := requireIdentity(ctx, sess)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 0, 2, ' ', 0)
	if err := writef(tw, "SECTION\tLABEL\tROLE\tPATH\n"); err != nil {
		return err
	}
	for _, s := range sess.Catalog.Visible(identity) {
		if err := writef(tw, "%s\t%s\t%s\t%s\n", s.Slug, s.Label, s.Role, s.Path()); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runTokens(cmdCtx *commandContext, args []string) error {
	opts, err := parseTokensFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	client, err := cmdCtx.redisClient(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("redis is disabled; set REDIS_ENABLED=true")
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	store := redisstore.NewTokenStore(redisstore.TokenStoreOptions{Client: client, Prefix: cmdCtx.Config.Auth.RedisPrefix})
	keys, err := store.Keys(ctx, opts.Limit)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := writef(cmdCtx.Out, "%s\n", k); err != nil {
			return err
		}
	}
	return writef(cmdCtx.Out, "%d key(s)\n", len(keys))
}
