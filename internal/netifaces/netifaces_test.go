package netifaces

import (
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestList(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		prev := netInterfaces
		defer func() {
			netInterfaces = prev
		}()
		netInterfaces = func() ([]net.Interface, error) {
			return []net.Interface{
				{Index: 1, Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
				{Index: 2, Name: "enp0s3", Flags: net.FlagUp},
				{Index: 3, Name: "wlan0"},
			}, nil
		}
		got, err := List()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"enp0s3", "wlan0"}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("on failure", func(t *testing.T) {
		prev := netInterfaces
		defer func() {
			netInterfaces = prev
		}()
		expected := errors.New("mocked error")
		netInterfaces = func() ([]net.Interface, error) {
			return nil, expected
		}
		got, err := List()
		if !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
		if got != nil {
			t.Fatal("expected nil list")
		}
	})

	t.Run("with the real system", func(t *testing.T) {
		got, err := List()
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range got {
			if name == "lo" {
				t.Fatal("the loopback interface should not be listed")
			}
		}
	})
}

const resolvectlStatus = `Global
         Protocols: +LLMNR +mDNS -DNSOverTLS DNSSEC=no/unsupported
  resolv.conf mode: stub

Link 2 (enp0s3)
    Current Scopes: DNS
         Protocols: +DefaultRoute +LLMNR -mDNS -DNSOverTLS DNSSEC=no/unsupported
Current DNS Server: 10.0.2.3
       DNS Servers: 10.0.2.3

Link 3 (wlan0)
    Current Scopes: none
         Protocols: -DefaultRoute +LLMNR -mDNS -DNSOverTLS DNSSEC=no/unsupported

Link 4
    Current Scopes: none
`

func TestResolvectlLinks(t *testing.T) {
	t.Run("typical output", func(t *testing.T) {
		got := ResolvectlLinks(resolvectlStatus)
		if diff := cmp.Diff([]string{"enp0s3", "wlan0", "4"}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("empty output", func(t *testing.T) {
		got := ResolvectlLinks("")
		if got == nil || len(got) != 0 {
			t.Fatal("expected an empty list", got)
		}
	})

	t.Run("duplicate links", func(t *testing.T) {
		got := ResolvectlLinks("Link 2 (eth0)\nLink 2 (eth0)\n")
		if diff := cmp.Diff([]string{"eth0"}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("lines mentioning Link elsewhere", func(t *testing.T) {
		got := ResolvectlLinks("   Link-local: yes\nDefault Link 2 (eth0)\n")
		if len(got) != 0 {
			t.Fatal("expected no links", got)
		}
	})
}
