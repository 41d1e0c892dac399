package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
)

// Credentials describe where the registry password comes from. At most one
// password source may be set, and only together with User.
type Credentials struct {
	User          string
	PasswordStdin bool
	PasswordEnv   string
}

// Authenticator resolves c. It returns nil (use the default keychain) when
// no user and no password source are configured. stdin is only read when
// PasswordStdin is set.
func (c Credentials) Authenticator(stdin io.Reader) (authn.Authenticator, error) {
	hasSource := c.PasswordStdin || c.PasswordEnv != ""
	switch {
	case c.User == "" && !hasSource:
		return nil, nil
	case c.User == "":
		return nil, errors.New("a password source requires a registry user")
	case c.PasswordStdin && c.PasswordEnv != "":
		return nil, errors.New("--password-stdin and --password-env are mutually exclusive")
	case !hasSource:
		return nil, fmt.Errorf("registry user %q given without --password-stdin or --password-env", c.User)
	}

	var password string
	if c.PasswordStdin {
		p, err := readFirstLine(stdin)
		if err != nil {
			return nil, err
		}
		password = p
	} else {
		p, ok := os.LookupEnv(c.PasswordEnv)
		if !ok {
			return nil, fmt.Errorf("password environment variable %s is not set", c.PasswordEnv)
		}
		password = p
	}
	return &authn.Basic{Username: c.User, Password: password}, nil
}

func readFirstLine(r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("no stdin to read the password from")
	}
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return "", errors.New("empty password on stdin")
	}
	p := strings.TrimRight(sc.Text(), "\r")
	if p == "" {
		return "", errors.New("empty password on stdin")
	}
	return p, nil
}
