package pidsim

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ServeListener serves every accepted connection with the same device,
// e.g. for tcp:// transports.
func (d *Device) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		glog.V(1).Infof("connection from %s", conn.RemoteAddr())
		go func() {
			if err := d.Serve(ctx, conn); err != nil && ctx.Err() == nil {
				glog.Warningf("%s: %v", conn.RemoteAddr(), err)
			}
			conn.Close()
		}()
	}
}

// WebSocketHandler serves the device for ws:// transports. Frames are
// carried in binary messages.
func (d *Device) WebSocketHandler(ctx context.Context) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		ws.PayloadType = websocket.BinaryFrame
		if err := d.Serve(ctx, ws); err != nil && ctx.Err() == nil {
			glog.Warningf("websocket %s: %v", ws.Request().RemoteAddr, err)
		}
	})
}

// ListenAndServeWebSocket serves WebSocketHandler on addr until ctx is done.
func (d *Device) ListenAndServeWebSocket(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: d.WebSocketHandler(ctx)}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}
