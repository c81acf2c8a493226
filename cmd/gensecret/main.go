package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// HS256 key should be at least as long as the hash output
const defaultKeyBytes = 32

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

// Print random secret suitable for SECRET_KEY
func run(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	size := fs.IntP("bytes", "n", defaultKeyBytes, "Number of random bytes in the key")
	encoding := fs.StringP("encoding", "e", "hex", "Output encoding (hex, base64)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *size < defaultKeyBytes {
		return fmt.Errorf("key must be at least %d bytes, got %d", defaultKeyBytes, *size)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		return err
	}

	var key string
	switch *encoding {
	case "hex":
		key = hex.EncodeToString(b)
	case "base64":
		key = base64.RawURLEncoding.EncodeToString(b)
	default:
		return fmt.Errorf("unknown encoding %q, use one of: hex, base64", *encoding)
	}

	_, err := fmt.Fprintln(w, key)
	return err
}
