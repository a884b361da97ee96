package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/garagebook-go/internal/cli/output"
	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// LoginCommand signs in and persists the session.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to the garage API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when omitted)",
				EnvVars: []string{"GARAGEBOOK_EMAIL"},
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "Read the password from stdin",
			},
		},
		Action: login,
	}
}

// LogoutCommand ends the session locally and remotely.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and forget the stored session",
		Action: logout,
	}
}

// WhoamiCommand shows the stored identity.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Action: whoami,
	}
}

func login(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	in := bufio.NewReader(c.App.Reader)
	email := strings.TrimSpace(c.String("email"))
	if email == "" {
		fmt.Fprint(c.App.ErrWriter, "Email: ")
		if email, err = readLine(in); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}

	password, err := readPassword(c, in)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	spin := startSpinner(c, "Signing in")
	identity, err := rt.Session.Login(c.Context, email, password)
	if err != nil {
		spin.Fail("sign-in failed")
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		if errors.Is(err, domain.ErrUnauthenticated) {
			return fmt.Errorf("%w: %w", errInvalidCredentials, err)
		}
		return err
	}
	spin.Stop()

	if machineReadable(c) {
		return render(c, identity)
	}
	fmt.Fprintf(c.App.Writer, "Logged in as %s <%s>\n", identity.Name, identity.Email)
	return nil
}

func logout(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if !rt.Session.IsAuthenticated() {
		notice(c, "Not logged in")
		return nil
	}
	if err := rt.Session.Logout(c.Context); err != nil {
		return fmt.Errorf("logout incomplete: %w", err)
	}
	notice(c, "Logged out")
	return nil
}

func whoami(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	identity, ok := rt.Session.Identity()
	if !ok {
		return errNotLoggedIn
	}
	return render(c, identity)
}

// readPassword reads from stdin when asked to, prompts without echo on a
// terminal, and otherwise reads one line.
func readPassword(c *cli.Context, in *bufio.Reader) (string, error) {
	if !c.Bool("password-stdin") {
		if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(c.App.ErrWriter, "Password: ")
			pass, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(c.App.ErrWriter)
			if err != nil {
				return "", err
			}
			return string(pass), nil
		}
	}
	line, err := readLine(in)
	if err != nil {
		return "", err
	}
	return line, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// spinner is the subset of output.Spinner commands use.
type spinner interface {
	Stop()
	Fail(message string)
}

type noSpinner struct{}

func (noSpinner) Stop()       {}
func (noSpinner) Fail(string) {}

// startSpinner animates on an interactive stderr only.
func startSpinner(c *cli.Context, message string) spinner {
	f, ok := c.App.ErrWriter.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return noSpinner{}
	}
	s := output.NewSpinner(f, message)
	s.Start()
	return s
}
