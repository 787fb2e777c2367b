// Command hash-generator prints the bcrypt hash of a service-token secret so it
// can be placed in auth.service_tokens[].secret_hash.
//
// The secret is read from -secret, or from the first line of stdin when the
// flag is omitted.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/mission-control/internal/service/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "hash-generator: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("hash-generator", flag.ContinueOnError)
	secret := fs.String("secret", "", "secret to hash (read from stdin when empty)")
	cost := fs.Int("cost", 0, "bcrypt cost (0 uses the library default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value := *secret
	if value == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading secret: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	if value == "" {
		return errors.New("secret cannot be empty")
	}

	hash, err := auth.HashSecret(value, *cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
