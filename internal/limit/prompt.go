package limit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/branchtabs/internal/config"
)

// Static answers every prompt the same way.
type Static struct {
	Accept bool
	Offer  Offer
}

// ConfirmCapped implements Prompter.
func (s Static) ConfirmCapped(context.Context, string, int, int) (bool, error) {
	return s.Accept, nil
}

// OfferNewMaximum implements Prompter.
func (s Static) OfferNewMaximum(context.Context, string, int, int) (Offer, error) {
	return s.Offer, nil
}

// Terminal prompts on a line-oriented reader and writer, typically stdin and
// stderr.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a terminal prompter.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// ConfirmCapped asks "Open N of M files? [y/N]".
func (t *Terminal) ConfirmCapped(ctx context.Context, root string, found, max int) (bool, error) {
	answer, err := t.ask(ctx, fmt.Sprintf("%s: %d changed files found, open the first %d? [y/N] ", root, found, max))
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

// OfferNewMaximum asks for a scope and a new maximum. An empty answer
// declines.
func (t *Terminal) OfferNewMaximum(ctx context.Context, root string, found, max int) (Offer, error) {
	answer, err := t.ask(ctx, "Store a new maximum? [workspace/user/N] ")
	if err != nil {
		return Offer{}, err
	}
	scope, err := config.ParseScope(answer)
	if err != nil {
		return Offer{}, nil
	}

	answer, err = t.ask(ctx, fmt.Sprintf("New maximum [%d]: ", found))
	if err != nil {
		return Offer{}, err
	}
	n := found
	if answer != "" {
		v, err := strconv.Atoi(answer)
		if err != nil || v < 0 {
			return Offer{}, fmt.Errorf("invalid maximum %q", answer)
		}
		n = v
	}
	return Offer{Accepted: true, Scope: scope, Max: n}, nil
}

func (t *Terminal) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.out, prompt); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isYes(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
