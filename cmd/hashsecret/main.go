// Command hashsecret prints the bcrypt hash to put in INTERNAL_API_SECRET_HASH.
// The secret is read from stdin so it stays out of shell history:
//
//	printf '%s' "$CRON_SECRET" | hashsecret
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/request-checker/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var cost int
	flagSet := pflag.NewFlagSet("hashsecret", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return errors.New("empty secret on stdin")
	}

	hash, err := auth.HashSecret(secret, cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
