package sysconf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

const DefaultYPConf = "/etc/yp.conf"

// NISHandler manages yp.conf and the NIS domain name.
type NISHandler struct {
	Path      string
	backup    FileBackup
	setDomain func(string) error
}

func NewNISHandler(path, backupDir string) *NISHandler {
	if path == "" {
		path = DefaultYPConf
	}
	return &NISHandler{
		Path:      path,
		backup:    FileBackup{Path: path, Dir: backupDir},
		setDomain: setDomainname,
	}
}

func (h *NISHandler) Backup() error {
	return h.backup.Backup()
}

func (h *NISHandler) Apply(lease *addrconf.Lease) error {
	if lease.NIS == nil {
		return errors.New("no nis config present")
	}

	header := fmt.Sprintf("# Generated by addrconfd from %s/%s lease", lease.Mechanism, lease.Family)
	data, err := FormatYPConf(lease.NIS, header)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(h.Path, data, 0o644); err != nil {
		return err
	}

	if err := h.setDomain(lease.NIS.DomainName); err != nil {
		return fmt.Errorf("cannot set domainname: %w", err)
	}
	return nil
}

func (h *NISHandler) Restore() error {
	if err := h.setDomain(""); err != nil {
		log.Warnf("cannot clear NIS domainname: %v", err)
	}
	return h.backup.Restore()
}

func setDomainname(name string) error {
	return unix.Setdomainname([]byte(name))
}

// FormatYPConf renders nis in yp.conf syntax. Only static and broadcast
// default bindings can be expressed.
func FormatYPConf(nis *addrconf.NISInfo, header string) ([]byte, error) {
	if nis.DefaultBinding != addrconf.NISBindingStatic && nis.DefaultBinding != addrconf.NISBindingBroadcast {
		return nil, fmt.Errorf("unsupported binding mode %s", nis.DefaultBinding)
	}

	var buf bytes.Buffer
	if header != "" {
		fmt.Fprintln(&buf, header)
	}
	if nis.DefaultBinding == addrconf.NISBindingBroadcast {
		fmt.Fprintln(&buf, "broadcast")
	}
	for _, dom := range nis.Domains {
		switch dom.Binding {
		case addrconf.NISBindingBroadcast:
			fmt.Fprintf(&buf, "domain %s broadcast\n", dom.Name)
		case addrconf.NISBindingSLP:
			fmt.Fprintf(&buf, "domain %s slp\n", dom.Name)
		}
		for _, srv := range dom.Servers {
			fmt.Fprintf(&buf, "domain %s server %s\n", dom.Name, srv)
		}
	}
	for _, srv := range nis.DefaultServers {
		fmt.Fprintf(&buf, "ypserver %s\n", srv)
	}
	return buf.Bytes(), nil
}

func ParseYPConf(path string) (*addrconf.NISInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	nis := &addrconf.NISInfo{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		argv := strings.Fields(line)
		if len(argv) == 0 {
			continue
		}

		switch {
		case argv[0] == "broadcast":
			nis.DefaultBinding = addrconf.NISBindingBroadcast
		case argv[0] == "domain" && len(argv) >= 3:
			dom := findDomain(nis, argv[1])
			switch {
			case argv[2] == "broadcast":
				dom.Binding = addrconf.NISBindingBroadcast
			case argv[2] == "slp":
				dom.Binding = addrconf.NISBindingSLP
			case argv[2] == "server" && len(argv) == 4:
				dom.Servers = append(dom.Servers, argv[3])
			}
		case argv[0] == "ypserver" && len(argv) == 2:
			nis.DefaultServers = append(nis.DefaultServers, argv[1])
		default:
			log.Warnf("%s: ignoring unknown keyword %q", path, argv[0])
		}
	}
	return nis, scanner.Err()
}

func findDomain(nis *addrconf.NISInfo, name string) *addrconf.NISDomain {
	for i := range nis.Domains {
		if strings.EqualFold(nis.Domains[i].Name, name) {
			return &nis.Domains[i]
		}
	}
	nis.Domains = append(nis.Domains, addrconf.NISDomain{Name: name})
	return &nis.Domains[len(nis.Domains)-1]
}
