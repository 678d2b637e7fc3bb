package session

import (
	"errors"
	"fmt"
	"regexp"
)

// A session name doubles as a directory name under the state dir, so the
// allowed alphabet stays deliberately narrow.
var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName rejects names that cannot safely become a session
// directory.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("session name is empty")
	}
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("session name %q: use lowercase letters, digits, '-' or '_', at most 64 characters", name)
	}
	return nil
}
