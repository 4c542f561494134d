package proxy

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

const handshakeTimeout = 30 * time.Second

// NewDialer returns a websocket dialer. With an empty socksAddr it dials
// directly; otherwise every connection goes through the SOCKS5 proxy.
func NewDialer(socksAddr string) (*websocket.Dialer, error) {
	d := &websocket.Dialer{
		Proxy:            nil,
		HandshakeTimeout: handshakeTimeout,
	}
	if socksAddr == "" {
		return d, nil
	}

	socks, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	if cd, ok := socks.(proxy.ContextDialer); ok {
		d.NetDialContext = cd.DialContext
	} else {
		d.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return socks.Dial(network, addr)
		}
	}
	return d, nil
}
