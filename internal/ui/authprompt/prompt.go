package authprompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

var (
	// ErrCanceled is returned when the user dismisses the prompt.
	ErrCanceled = errors.New("authorization canceled")
	// ErrNoToken is returned when input ends without a token.
	ErrNoToken = errors.New("no token provided")
)

// Prompt collects an authorization token from the terminal or, when input
// is not a terminal, from plain lines of text.
type Prompt struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	linesOnce sync.Once
	lines     chan string
}

// New creates a prompt on stdin and stderr. The full-screen prompt is used
// only when stdin is a terminal.
func New() *Prompt {
	fd := os.Stdin.Fd()
	return &Prompt{
		in:          os.Stdin,
		out:         os.Stderr,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// NewPlain creates a line-based prompt reading from in and writing to out.
func NewPlain(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// Ask shows authURL and returns the first token either pasted by the user
// or received on tokens. tokens may be nil when no redirect is expected.
func (p *Prompt) Ask(ctx context.Context, authURL string, tokens <-chan string) (string, error) {
	if p.interactive {
		return p.askInteractive(ctx, authURL, tokens)
	}
	return p.askPlain(ctx, authURL, tokens)
}

func (p *Prompt) askInteractive(ctx context.Context, authURL string, tokens <-chan string) (string, error) {
	prog := tea.NewProgram(
		NewModel(authURL, tokens != nil),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case token, ok := <-tokens:
			if ok {
				prog.Send(tokenMsg(token))
			}
		case <-stop:
		}
	}()

	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("run prompt: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.Canceled() {
		return "", ErrCanceled
	}
	if m.Token() == "" {
		return "", ErrNoToken
	}
	return m.Token(), nil
}

func (p *Prompt) askPlain(ctx context.Context, authURL string, tokens <-chan string) (string, error) {
	fmt.Fprintln(p.out, "Last.fm authorization required")
	fmt.Fprintln(p.out, "1. Open this page and allow access:")
	fmt.Fprintf(p.out, "   %s\n", authURL)
	if tokens != nil {
		fmt.Fprintln(p.out, "2. Waiting for the browser redirect, or paste the token and press Enter:")
	} else {
		fmt.Fprintln(p.out, "2. Copy the token from the redirect URL, paste it and press Enter:")
	}

	lines := p.readLines()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case token, ok := <-tokens:
			if !ok {
				tokens = nil
				continue
			}
			fmt.Fprintln(p.out, "Token received from the browser")
			return token, nil

		case line, ok := <-lines:
			if !ok {
				if tokens == nil {
					return "", ErrNoToken
				}
				lines = nil
				continue
			}
			if token := ParseToken(line); token != "" {
				return token, nil
			}
			if tokens == nil {
				return "", ErrNoToken
			}
		}
	}
}

// readLines starts a single reader on p.in; later prompts share it so two
// readers never compete for the same input.
func (p *Prompt) readLines() <-chan string {
	p.linesOnce.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				p.lines <- scanner.Text()
			}
		}()
	})
	return p.lines
}
