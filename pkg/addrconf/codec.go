package addrconf

import (
	"fmt"
	"net"
	"strings"
	"time"

	"gopkg.in/vmihailenco/msgpack.v2"
)

type Event string

const (
	EventGranted  Event = "granted"
	EventReleased Event = "released"
	EventLost     Event = "lost"
	EventRequest  Event = "request"
)

// Notification is one message from a lease supplicant to the daemon.
type Notification struct {
	Event   Event
	Iface   InterfaceRef
	Lease   *Lease
	Request *Request
}

type wireNotification struct {
	Event   string       `msgpack:"event"`
	IfIndex int          `msgpack:"ifindex"`
	IfName  string       `msgpack:"ifname"`
	Lease   *wireLease   `msgpack:"lease,omitempty"`
	Request *wireRequest `msgpack:"request,omitempty"`
}

type wireRequest struct {
	Mechanism string   `msgpack:"mechanism"`
	Family    string   `msgpack:"family"`
	Update    []string `msgpack:"update"`
}

type wireLease struct {
	UUID       string `msgpack:"uuid"`
	Mechanism  string `msgpack:"mechanism"`
	Family     string `msgpack:"family"`
	State      string `msgpack:"state"`
	AcquiredAt int64  `msgpack:"acquired_at"`

	Hostname     string        `msgpack:"hostname,omitempty"`
	Resolver     *wireResolver `msgpack:"resolver,omitempty"`
	NIS          *wireNIS      `msgpack:"nis,omitempty"`
	DefaultRoute *wireRoute    `msgpack:"default_route,omitempty"`
}

type wireResolver struct {
	DefaultDomain string   `msgpack:"default_domain"`
	Servers       []string `msgpack:"servers"`
	Search        []string `msgpack:"search"`
}

type wireNISDomain struct {
	Name    string   `msgpack:"name"`
	Binding string   `msgpack:"binding"`
	Servers []string `msgpack:"servers"`
}

type wireNIS struct {
	DomainName     string          `msgpack:"domain_name"`
	DefaultBinding string          `msgpack:"default_binding"`
	DefaultServers []string        `msgpack:"default_servers"`
	Domains        []wireNISDomain `msgpack:"domains"`
}

type wireRoute struct {
	Gateway string `msgpack:"gateway"`
	Metric  int    `msgpack:"metric"`
}

func ParseState(name string) (State, error) {
	switch strings.ToLower(name) {
	case "granted":
		return StateGranted, nil
	case "released":
		return StateReleased, nil
	case "failed":
		return StateFailed, nil
	}
	return 0, fmt.Errorf("unknown lease state %q", name)
}

func ParseNISBinding(name string) (NISBinding, error) {
	switch strings.ToLower(name) {
	case "", "static":
		return NISBindingStatic, nil
	case "broadcast":
		return NISBindingBroadcast, nil
	case "slp":
		return NISBindingSLP, nil
	}
	return 0, fmt.Errorf("unknown NIS binding %q", name)
}

func EncodeLease(l *Lease) ([]byte, error) {
	return msgpack.Marshal(leaseToWire(l))
}

func DecodeLease(data []byte) (*Lease, error) {
	var w wireLease
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode lease: %w", err)
	}
	return leaseFromWire(&w)
}

func EncodeNotification(n *Notification) ([]byte, error) {
	w := wireNotification{
		Event:   string(n.Event),
		IfIndex: n.Iface.Index,
		IfName:  n.Iface.Name,
	}
	if n.Lease != nil {
		w.Lease = leaseToWire(n.Lease)
	}
	if n.Request != nil {
		w.Request = &wireRequest{
			Mechanism: n.Request.Mechanism.String(),
			Family:    n.Request.Family.String(),
		}
		for _, t := range n.Request.Update.Targets() {
			w.Request.Update = append(w.Request.Update, t.String())
		}
	}
	return msgpack.Marshal(&w)
}

func DecodeNotification(data []byte) (*Notification, error) {
	var w wireNotification
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	n := &Notification{
		Event: Event(w.Event),
		Iface: InterfaceRef{Index: w.IfIndex, Name: w.IfName},
	}

	switch n.Event {
	case EventGranted, EventReleased, EventLost:
		if w.Lease == nil {
			return nil, fmt.Errorf("%s notification without lease", w.Event)
		}
		l, err := leaseFromWire(w.Lease)
		if err != nil {
			return nil, err
		}
		n.Lease = l
	case EventRequest:
		if w.Request == nil {
			return nil, fmt.Errorf("request notification without request")
		}
		r, err := requestFromWire(w.Request)
		if err != nil {
			return nil, err
		}
		n.Request = r
	default:
		return nil, fmt.Errorf("unknown notification event %q", w.Event)
	}
	return n, nil
}

func requestFromWire(w *wireRequest) (*Request, error) {
	m, err := ParseMechanism(w.Mechanism)
	if err != nil {
		return nil, err
	}
	f, err := ParseFamily(w.Family)
	if err != nil {
		return nil, err
	}
	update, err := ParseTargetSet(w.Update)
	if err != nil {
		return nil, err
	}
	return &Request{Mechanism: m, Family: f, Update: update}, nil
}

func leaseToWire(l *Lease) *wireLease {
	w := &wireLease{
		UUID:      l.UUID,
		Mechanism: l.Mechanism.String(),
		Family:    l.Family.String(),
		State:     l.State.String(),
		Hostname:  l.Hostname,
	}
	if !l.AcquiredAt.IsZero() {
		w.AcquiredAt = l.AcquiredAt.UnixNano()
	}
	if r := l.Resolver; r != nil {
		w.Resolver = &wireResolver{DefaultDomain: r.DefaultDomain, Servers: r.Servers, Search: r.Search}
	}
	if n := l.NIS; n != nil {
		w.NIS = &wireNIS{
			DomainName:     n.DomainName,
			DefaultBinding: n.DefaultBinding.String(),
			DefaultServers: n.DefaultServers,
		}
		for _, d := range n.Domains {
			w.NIS.Domains = append(w.NIS.Domains, wireNISDomain{Name: d.Name, Binding: d.Binding.String(), Servers: d.Servers})
		}
	}
	if rt := l.DefaultRoute; rt != nil {
		w.DefaultRoute = &wireRoute{Metric: rt.Metric}
		if rt.Gateway != nil {
			w.DefaultRoute.Gateway = rt.Gateway.String()
		}
	}
	return w
}

func leaseFromWire(w *wireLease) (*Lease, error) {
	m, err := ParseMechanism(w.Mechanism)
	if err != nil {
		return nil, err
	}
	f, err := ParseFamily(w.Family)
	if err != nil {
		return nil, err
	}
	s, err := ParseState(w.State)
	if err != nil {
		return nil, err
	}

	l := &Lease{
		UUID:      w.UUID,
		Mechanism: m,
		Family:    f,
		State:     s,
		Hostname:  w.Hostname,
	}
	if w.AcquiredAt != 0 {
		l.AcquiredAt = time.Unix(0, w.AcquiredAt)
	}
	if r := w.Resolver; r != nil {
		l.Resolver = &ResolverInfo{DefaultDomain: r.DefaultDomain, Servers: r.Servers, Search: r.Search}
	}
	if n := w.NIS; n != nil {
		b, err := ParseNISBinding(n.DefaultBinding)
		if err != nil {
			return nil, err
		}
		l.NIS = &NISInfo{DomainName: n.DomainName, DefaultBinding: b, DefaultServers: n.DefaultServers}
		for _, d := range n.Domains {
			db, err := ParseNISBinding(d.Binding)
			if err != nil {
				return nil, err
			}
			l.NIS.Domains = append(l.NIS.Domains, NISDomain{Name: d.Name, Binding: db, Servers: d.Servers})
		}
	}
	if rt := w.DefaultRoute; rt != nil {
		l.DefaultRoute = &RouteInfo{Metric: rt.Metric}
		if rt.Gateway != "" {
			gw := net.ParseIP(rt.Gateway)
			if gw == nil {
				return nil, fmt.Errorf("invalid default route gateway %q", rt.Gateway)
			}
			l.DefaultRoute.Gateway = gw
		}
	}
	return l, nil
}
