package addrconf

import (
	"net"
	"testing"
	"time"
)

func TestNotificationCarriesFullLease(t *testing.T) {
	acquired := time.Unix(1700000000, 123)
	n := &Notification{
		Event: EventGranted,
		Iface: InterfaceRef{Index: 7, Name: "eth3"},
		Lease: &Lease{
			UUID:       "6e1c3f0a-1b7e-4c52-8c55-1c2a5f0b9d11",
			Mechanism:  MechanismDHCP,
			Family:     FamilyIPv6,
			State:      StateGranted,
			AcquiredAt: acquired,
			Hostname:   "node1",
			Resolver:   &ResolverInfo{DefaultDomain: "example.net", Servers: []string{"2001:db8::53"}, Search: []string{"example.net"}},
			NIS: &NISInfo{
				DomainName:     "corp",
				DefaultBinding: NISBindingBroadcast,
				Domains:        []NISDomain{{Name: "corp", Binding: NISBindingStatic, Servers: []string{"yp1"}}},
			},
			DefaultRoute: &RouteInfo{Gateway: net.ParseIP("2001:db8::1"), Metric: 100},
		},
	}

	data, err := EncodeNotification(n)
	if err != nil {
		t.Fatalf("Failed to encode notification: %v", err)
	}
	got, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("Failed to decode notification: %v", err)
	}

	if got.Event != EventGranted || got.Iface != n.Iface {
		t.Fatalf("Expected event=%s iface=%v, got event=%s iface=%v", n.Event, n.Iface, got.Event, got.Iface)
	}
	l := got.Lease
	if l.Mechanism != MechanismDHCP || l.Family != FamilyIPv6 || l.State != StateGranted {
		t.Errorf("Slot identity lost: %s", l)
	}
	if !l.AcquiredAt.Equal(acquired) {
		t.Errorf("Expected acquired=%v, got=%v", acquired, l.AcquiredAt)
	}
	if l.Offers() != AllTargets {
		t.Errorf("Expected every payload field to survive, offers=%s", l.Offers())
	}
	if l.NIS.DefaultBinding != NISBindingBroadcast || l.NIS.Domains[0].Servers[0] != "yp1" {
		t.Errorf("NIS payload mismatch: %+v", l.NIS)
	}
	if !l.DefaultRoute.Gateway.Equal(net.ParseIP("2001:db8::1")) || l.DefaultRoute.Metric != 100 {
		t.Errorf("Route payload mismatch: %+v", l.DefaultRoute)
	}
}

func TestDecodeRequestNotification(t *testing.T) {
	data, err := EncodeNotification(&Notification{
		Event:   EventRequest,
		Iface:   InterfaceRef{Name: "eth0"},
		Request: &Request{Mechanism: MechanismStatic, Family: FamilyIPv4, Update: NewTargetSet(TargetResolver, TargetNIS)},
	})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	n, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if n.Request.Update != NewTargetSet(TargetResolver, TargetNIS) {
		t.Errorf("Expected resolver,nis, got=%s", n.Request.Update)
	}
}

func TestDecodeNotificationRejectsMalformed(t *testing.T) {
	if _, err := DecodeNotification([]byte{0xc1}); err == nil {
		t.Errorf("Expected error for garbage input")
	}

	data, _ := EncodeNotification(&Notification{Event: "bogus", Iface: InterfaceRef{Index: 1}})
	if _, err := DecodeNotification(data); err == nil {
		t.Errorf("Expected error for unknown event")
	}

	data, _ = EncodeNotification(&Notification{Event: EventLost, Iface: InterfaceRef{Index: 1}})
	if _, err := DecodeNotification(data); err == nil {
		t.Errorf("Expected error for lost notification without lease")
	}
}
