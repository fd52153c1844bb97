//go:build !windows

package identity

import "syscall"

// sysSwitcher changes the effective identity of the whole process. Since
// go1.16 the runtime propagates set*id calls to every thread.
type sysSwitcher struct{}

func (sysSwitcher) Seteuid(uid int) error { return syscall.Seteuid(uid) }
func (sysSwitcher) Setegid(gid int) error { return syscall.Setegid(gid) }
