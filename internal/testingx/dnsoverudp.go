package testingx

import (
	"context"
	"errors"
	"net"
	"sync"
)

// DNSOverUDPListener is a DNS-over-UDP listener. The zero value of this
// struct is invalid, please use [MustNewDNSOverUDPListener].
type DNSOverUDPListener struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	pconn     net.PacketConn
	rtx       DNSRoundTripper
	wg        sync.WaitGroup
}

// MustNewDNSOverUDPListener creates a new [DNSOverUDPListener] listening on
// a random port of 127.0.0.1 and using the given [DNSRoundTripper].
func MustNewDNSOverUDPListener(rtx DNSRoundTripper) *DNSOverUDPListener {
	pconn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	dl := &DNSOverUDPListener{
		cancel: cancel,
		pconn:  pconn,
		rtx:    rtx,
	}
	dl.wg.Add(1)
	go dl.mainloop(ctx)
	return dl
}

// LocalAddr returns the connection address.
func (dl *DNSOverUDPListener) LocalAddr() net.Addr {
	return dl.pconn.LocalAddr()
}

// Close implements io.Closer.
func (dl *DNSOverUDPListener) Close() (err error) {
	dl.closeOnce.Do(func() {
		// close the connection to interrupt ReadFrom or WriteTo
		err = dl.pconn.Close()

		// cancel the context to interrupt the round trippers
		dl.cancel()

		// wait for the background goroutines to join
		dl.wg.Wait()
	})
	return err
}

func (dl *DNSOverUDPListener) mainloop(ctx context.Context) {
	// synchronize with Close
	defer dl.wg.Done()

	for {
		buffer := make([]byte, 1<<17)
		count, addr, err := dl.pconn.ReadFrom(buffer)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}

		// serve each query in the background so that a slow or
		// dropped query does not block the other queries
		dl.wg.Add(1)
		go func(rawReq []byte, addr net.Addr) {
			defer dl.wg.Done()
			rawResp, err := dl.rtx.RoundTrip(ctx, rawReq)
			if err != nil {
				return
			}
			_, _ = dl.pconn.WriteTo(rawResp, addr)
		}(buffer[:count], addr)
	}
}
