package network

import (
	"context"
	"net"
)

var DialWithIPStack = dialWithIPStack

func DialThroughProxyDialer(ctx context.Context, addr, ipStack string) (net.Conn, error) {
	return (&ipStackDialer{ipStack: ipStack}).DialContext(ctx, "tcp", addr)
}
