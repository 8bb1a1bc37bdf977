package testingx

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// DNSOverTCPListener is a DNS-over-TCP listener. The zero value of this
// struct is invalid, please use [MustNewDNSOverTCPListener].
type DNSOverTCPListener struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	listener  net.Listener
	rtx       DNSRoundTripper
	wg        sync.WaitGroup
}

// MustNewDNSOverTCPListener creates a new [DNSOverTCPListener] listening on
// a random port of 127.0.0.1 and using the given [DNSRoundTripper].
func MustNewDNSOverTCPListener(rtx DNSRoundTripper) *DNSOverTCPListener {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	dl := &DNSOverTCPListener{
		cancel:   cancel,
		listener: listener,
		rtx:      rtx,
	}
	dl.wg.Add(1)
	go dl.mainloop(ctx)
	return dl
}

// LocalAddr returns the listener address.
func (dl *DNSOverTCPListener) LocalAddr() net.Addr {
	return dl.listener.Addr()
}

// Close implements io.Closer.
func (dl *DNSOverTCPListener) Close() (err error) {
	dl.closeOnce.Do(func() {
		err = dl.listener.Close()
		dl.cancel()
		dl.wg.Wait()
	})
	return err
}

func (dl *DNSOverTCPListener) mainloop(ctx context.Context) {
	defer dl.wg.Done()
	for {
		conn, err := dl.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}
		dl.wg.Add(1)
		go dl.serve(ctx, conn)
	}
}

// serve serves a single query on the given conn.
func (dl *DNSOverTCPListener) serve(ctx context.Context, conn net.Conn) {
	defer dl.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		return
	}
	rawReq := make([]byte, int(header[0])<<8|int(header[1]))
	if _, err := io.ReadFull(conn, rawReq); err != nil {
		return
	}
	rawResp, err := dl.rtx.RoundTrip(ctx, rawReq)
	if err != nil {
		return
	}
	out := []byte{byte(len(rawResp) >> 8), byte(len(rawResp))}
	_, _ = conn.Write(append(out, rawResp...))
}
