// Package repl runs the interactive garagebook-cli shell.
//
// Lines are split into arguments and handed to an Exec function, so the
// shell understands exactly the commands the one-shot CLI does.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPrompt is printed before every line.
const DefaultPrompt = "garagebook> "

// ExecFunc runs one parsed command line.
type ExecFunc func(ctx context.Context, args []string) error

// Options configures a REPL.
type Options struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
	Exec   ExecFunc

	// OnError formats errors returned by Exec. Defaults to "error: <err>".
	OnError func(err error) string

	Completer *Completer
	History   *History
}

// REPL is a read-eval-print loop over a line-oriented reader.
type REPL struct {
	opts Options
}

// New creates a REPL. Exec is required.
func New(opts Options) (*REPL, error) {
	if opts.Exec == nil {
		return nil, errors.New("repl: Exec is required")
	}
	if opts.In == nil || opts.Out == nil {
		return nil, errors.New("repl: In and Out are required")
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) string { return "error: " + err.Error() }
	}
	if opts.Completer == nil {
		opts.Completer = NewCompleter()
	}
	if opts.History == nil {
		opts.History = NewHistory("")
	}
	return &REPL{opts: opts}, nil
}

// Run reads lines until EOF, "exit", "quit" or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	out := r.opts.Out
	scanner := bufio.NewScanner(r.opts.In)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, r.opts.Prompt)

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		done, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(out, r.opts.OnError(err))
		}
		if done {
			return nil
		}
	}
}

func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	switch line {
	case "exit", "quit":
		return true, nil
	case "history":
		for i, entry := range r.opts.History.Entries() {
			fmt.Fprintf(r.opts.Out, "%4d  %s\n", i+1, entry)
		}
		return false, nil
	}

	if prefix, ok := strings.CutSuffix(line, "?"); ok {
		for _, s := range r.opts.Completer.Complete(strings.TrimSpace(prefix)) {
			fmt.Fprintln(r.opts.Out, s)
		}
		return false, nil
	}

	r.opts.History.Add(line)

	args, err := Split(line)
	if err != nil {
		return false, err
	}
	return false, r.opts.Exec(ctx, args)
}

// ErrUnterminatedQuote is returned by Split for an unbalanced quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Split breaks a line into arguments. Single quotes are literal, double
// quotes allow backslash escapes, and a backslash outside quotes escapes
// the next character.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case quote == '\'':
			if ch == '\'' {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case quote == '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(ch)
			}
		case ch == '\\':
			escaped, inArg = true, true
		case ch == '\'' || ch == '"':
			quote, inArg = ch, true
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(ch)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
