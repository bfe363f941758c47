package sysconf

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

// HostnameHandler sets the kernel hostname. Backup remembers the hostname
// in effect before the first override so Restore can put it back.
type HostnameHandler struct {
	get func() (string, error)
	set func(string) error

	saved     string
	haveSaved bool
}

func NewHostnameHandler() *HostnameHandler {
	return &HostnameHandler{
		get: os.Hostname,
		set: func(name string) error { return unix.Sethostname([]byte(name)) },
	}
}

func (h *HostnameHandler) Backup() error {
	name, err := h.get()
	if err != nil {
		return err
	}
	h.saved, h.haveSaved = name, true
	return nil
}

func (h *HostnameHandler) Apply(lease *addrconf.Lease) error {
	if lease.Hostname == "" {
		return errors.New("no hostname present")
	}
	return h.set(lease.Hostname)
}

func (h *HostnameHandler) Restore() error {
	if !h.haveSaved {
		return nil
	}
	if err := h.set(h.saved); err != nil {
		return err
	}
	h.haveSaved = false
	return nil
}
