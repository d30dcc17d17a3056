package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// TerminalPrompt reads a password from stdin with echo disabled, writing the label to out.
func TerminalPrompt(stdin *os.File, out io.Writer) PasswordPrompt {
	return func(label string) (string, error) {
		fmt.Fprint(out, label)
		secret, err := readPasswordNoEcho(stdin)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
}

func readSecretLine(stdin io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
