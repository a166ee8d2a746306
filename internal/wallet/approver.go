package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"
)

// Approver decides whether a connection request is granted.
type Approver interface {
	Approve(ctx context.Context, accounts []common.Address) (bool, error)
}

type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, []common.Address) (bool, error) { return true, nil }

// TerminalApprover asks on the controlling terminal. Without a terminal
// every request is declined.
type TerminalApprover struct {
	In  *os.File
	Out io.Writer
}

func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{In: os.Stdin, Out: os.Stderr}
}

func (a *TerminalApprover) Approve(ctx context.Context, accounts []common.Address) (bool, error) {
	if a.In == nil || !term.IsTerminal(int(a.In.Fd())) {
		return false, nil
	}

	_, _ = fmt.Fprintln(a.Out)
	_, _ = fmt.Fprintln(a.Out, "=== Wallet connection request ===")
	for _, acct := range accounts {
		_, _ = fmt.Fprintf(a.Out, "  %s\n", acct.Hex())
	}
	_, _ = fmt.Fprint(a.Out, "Expose these accounts? [y/N]: ")

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(a.In).ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		s := strings.TrimSpace(strings.ToLower(line))
		return s == "y" || s == "yes", nil
	}
}

// PromptPassphrase reads a keystore passphrase without echo.
func PromptPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("wallet: passphrase required but stdin is not a terminal")
	}

	_, _ = fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("wallet: passphrase input failed: %w", err)
	}
	return string(pw), nil
}
