package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"
)

type Client struct {
	client *rpc.Client
}

// NewClient connects to the rpc server listening on localhost:port, retrying
// for a short while to let the server start.
func NewClient(port int) (*Client, error) {
	const maxretries = 5

	var err error
	for i := range maxretries {
		var client *rpc.Client
		if client, err = rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(port)); err == nil {
			return &Client{client: client}, nil
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(250 * time.Millisecond)
	}
	return nil, fmt.Errorf("dial failed max retries: %v", err)
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Reset() error                   { return call(c.client, "emu.Reset", nil) }
func (c *Client) SetPause(pause bool) error      { return call(c.client, "emu.SetPause", pause) }
func (c *Client) Stop() error                    { return call(c.client, "emu.Stop", nil) }
func (c *Client) SetStatePath(path string) error { return call(c.client, "emu.SetStatePath", path) }

func (c *Client) IsReady() (bool, error) {
	return request[bool](c.client, "emu.IsReady", nil)
}

func call(client *rpc.Client, funcname string, args any) error {
	_, err := request[struct{}](client, funcname, args)
	return err
}

func request[T any](client *rpc.Client, funcname string, args any) (T, error) {
	if args == nil {
		args = &struct{}{}
	}
	var reply T
	if err := client.Call(funcname, args, &reply); err != nil {
		modRPC.ErrorZ("RPC call failed").String("func", funcname).Error("err", err).End()
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
