//go:build windows

package identity

import "errors"

type sysSwitcher struct{}

func (sysSwitcher) Seteuid(int) error { return errors.New("identity switching requires a unix host") }
func (sysSwitcher) Setegid(int) error { return errors.New("identity switching requires a unix host") }
