package sysconf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

const DefaultResolvConf = "/etc/resolv.conf"

// ResolverHandler manages resolv.conf.
type ResolverHandler struct {
	Path   string
	backup FileBackup
}

func NewResolverHandler(path, backupDir string) *ResolverHandler {
	if path == "" {
		path = DefaultResolvConf
	}
	return &ResolverHandler{
		Path:   path,
		backup: FileBackup{Path: path, Dir: backupDir},
	}
}

func (h *ResolverHandler) Backup() error {
	return h.backup.Backup()
}

func (h *ResolverHandler) Apply(lease *addrconf.Lease) error {
	if lease.Resolver == nil {
		return errors.New("no resolver config present")
	}
	header := fmt.Sprintf("# Generated by addrconfd from %s/%s lease", lease.Mechanism, lease.Family)
	return writeFileAtomic(h.Path, FormatResolvConf(lease.Resolver, header), 0o644)
}

func (h *ResolverHandler) Restore() error {
	return h.backup.Restore()
}

func FormatResolvConf(r *addrconf.ResolverInfo, header string) []byte {
	var buf bytes.Buffer
	if header != "" {
		fmt.Fprintln(&buf, header)
	}
	if r.DefaultDomain != "" {
		fmt.Fprintf(&buf, "domain %s\n", r.DefaultDomain)
	}
	if len(r.Search) > 0 {
		fmt.Fprintf(&buf, "search %s\n", strings.Join(r.Search, " "))
	}
	for _, ns := range r.Servers {
		fmt.Fprintf(&buf, "nameserver %s\n", ns)
	}
	return buf.Bytes()
}

func ParseResolvConf(path string) (*addrconf.ResolverInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := &addrconf.ResolverInfo{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "nameserver":
			r.Servers = append(r.Servers, fields[1])
		case "domain":
			r.DefaultDomain = fields[1]
		case "search":
			r.Search = append(r.Search[:0], fields[1:]...)
		}
	}
	return r, scanner.Err()
}
