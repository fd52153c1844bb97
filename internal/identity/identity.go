// Package identity scopes privileged file mutations to the deployment's
// service account. The caller's effective uid/gid and HOME are restored on
// every exit path, including panics.
package identity

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Switcher performs the actual identity changes. Production code uses the
// syscall-backed implementation; tests substitute a fake.
type Switcher interface {
	Seteuid(uid int) error
	Setegid(gid int) error
}

// Account is a resolved service account.
type Account struct {
	Name string
	UID  int
	GID  int
	Home string
}

// Lookup resolves the named unix account. A missing account means the
// installation is incomplete.
func Lookup(name string) (Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Account{}, fmt.Errorf("cannot find user account %q, your installation seems incomplete: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, fmt.Errorf("invalid uid %q for account %q", u.Uid, name)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, fmt.Errorf("invalid gid %q for account %q", u.Gid, name)
	}
	return Account{Name: name, UID: uid, GID: gid, Home: u.HomeDir}, nil
}

// As runs fn with the effective identity of the named account and restores
// the caller's identity afterwards, error or not.
func As(name string, fn func() error) error {
	acct, err := Lookup(name)
	if err != nil {
		return err
	}
	return scoped(sysSwitcher{}, acct, fn)
}

func scoped(sw Switcher, acct Account, fn func() error) (err error) {
	origUID := os.Geteuid()
	origGID := os.Getegid()
	origHome := os.Getenv("HOME")

	// gid first: once euid drops, setegid back may be refused
	if err := sw.Setegid(acct.GID); err != nil {
		return fmt.Errorf("cannot switch to group of account %q: %w", acct.Name, err)
	}
	if err := sw.Seteuid(acct.UID); err != nil {
		_ = sw.Setegid(origGID)
		return fmt.Errorf("cannot switch to account %q: %w", acct.Name, err)
	}
	_ = os.Setenv("HOME", acct.Home)

	defer func() {
		_ = sw.Seteuid(origUID)
		_ = sw.Setegid(origGID)
		_ = os.Setenv("HOME", origHome)
	}()

	return fn()
}
