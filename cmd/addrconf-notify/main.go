// Command addrconf-notify reports a lease event to a running addrconfd.
package main

import (
	"flag"
	"net"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
	"github.com/umegbewe/addrconfd/pkg/server"
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func main() {
	socket := flag.String("socket", "/run/addrconfd/notify.sock", "addrconfd notify socket")
	event := flag.String("event", "granted", "granted, released, lost or request")
	ifname := flag.String("iface", "", "interface name")
	ifindex := flag.Int("ifindex", 0, "interface index, takes precedence over -iface")
	mechanism := flag.String("mechanism", "dhcp", "addrconf mechanism")
	family := flag.String("family", "ipv4", "address family")
	id := flag.String("uuid", "", "lease uuid, generated by the daemon when empty")
	acquired := flag.Int64("acquired", 0, "lease acquisition time in unix seconds, now when zero")
	hostname := flag.String("hostname", "", "hostname offered by the lease")
	dns := flag.String("dns", "", "comma separated name servers")
	search := flag.String("search", "", "comma separated search domains")
	domain := flag.String("domain", "", "default DNS domain")
	nisDomain := flag.String("nis-domain", "", "NIS domain name")
	ypservers := flag.String("ypservers", "", "comma separated NIS servers")
	gateway := flag.String("gateway", "", "default gateway")
	metric := flag.Int("metric", 0, "default route metric")
	update := flag.String("update", "", "comma separated targets for a request event")
	flag.Parse()

	if *ifname == "" && *ifindex == 0 {
		log.Fatalf("either -iface or -ifindex is required")
	}

	mech, err := addrconf.ParseMechanism(*mechanism)
	if err != nil {
		log.Fatal(err)
	}
	fam, err := addrconf.ParseFamily(*family)
	if err != nil {
		log.Fatal(err)
	}

	n := &addrconf.Notification{
		Event: addrconf.Event(*event),
		Iface: addrconf.InterfaceRef{Index: *ifindex, Name: *ifname},
	}

	if n.Event == addrconf.EventRequest {
		targets, err := addrconf.ParseTargetSet(splitList(*update))
		if err != nil {
			log.Fatal(err)
		}
		n.Request = &addrconf.Request{Mechanism: mech, Family: fam, Update: targets}
	} else {
		at := time.Now()
		if *acquired != 0 {
			at = time.Unix(*acquired, 0)
		}
		lease := &addrconf.Lease{
			UUID:       *id,
			Mechanism:  mech,
			Family:     fam,
			State:      addrconf.StateGranted,
			AcquiredAt: at,
			Hostname:   *hostname,
		}
		if *dns != "" || *search != "" || *domain != "" {
			lease.Resolver = &addrconf.ResolverInfo{DefaultDomain: *domain, Servers: splitList(*dns), Search: splitList(*search)}
		}
		if *nisDomain != "" || *ypservers != "" {
			lease.NIS = &addrconf.NISInfo{DomainName: *nisDomain, DefaultServers: splitList(*ypservers)}
		}
		if *gateway != "" {
			gw := net.ParseIP(*gateway)
			if gw == nil {
				log.Fatalf("invalid gateway %q", *gateway)
			}
			lease.DefaultRoute = &addrconf.RouteInfo{Gateway: gw, Metric: *metric}
		}
		n.Lease = lease
	}

	if err := server.Notify(*socket, n); err != nil {
		log.Errorf("Failed to notify addrconfd: %v", err)
		os.Exit(1)
	}
}
