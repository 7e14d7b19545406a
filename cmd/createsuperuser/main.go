// Command createsuperuser creates a staff account using the server's
// configuration. Username and email come from -username and -email; the
// password is read from the terminal, or from stdin when it is not a TTY.
// With -reset the password of an existing account is replaced instead.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pliu/chatroom/internal/app"
	"github.com/pliu/chatroom/internal/config"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/users"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Server flags such as -d and -c are filtered out here and picked up by
	// config.Load below.
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	username := fs.String("username", "", "username of the new staff account")
	email := fs.String("email", "", "email address")
	reset := fs.Bool("reset", false, "reset the password of an existing account instead")
	if err := fs.Parse(config.FilterArgs(fs, args)); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logging.New(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close()

	if *reset {
		u, err := a.Users().ResetPassword(ctx, *username, password)
		if err != nil {
			return err
		}
		fmt.Printf("Password changed for %q.\n", u.Username)
		return nil
	}

	u, err := a.Users().CreateSuperuser(ctx, users.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Superuser %q created with id %d.\n", u.Username, u.ID)
	return nil
}

func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Password (again): ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords didn't match")
	}
	return string(first), nil
}
