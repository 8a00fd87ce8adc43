package rpc

import (
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
)

// Emu is the set of controls of the emulation loop.
type Emu interface {
	Reset()
	SetPause(pause bool)
	Stop()

	SetStatePath(path string)
}

type emuProxy struct {
	emu Emu
}

func (ep *emuProxy) SetStatePath(path string, _ *struct{}) error {
	ep.emu.SetStatePath(path)
	return nil
}
func (ep *emuProxy) Reset(_, _ *struct{}) error             { ep.emu.Reset(); return nil }
func (ep *emuProxy) SetPause(pause bool, _ *struct{}) error { ep.emu.SetPause(pause); return nil }
func (ep *emuProxy) Stop(_ *struct{}, _ *struct{}) error    { ep.emu.Stop(); return nil }

func (ep *emuProxy) IsReady(_ *struct{}, reply *bool) error {
	*reply = true
	return nil
}

type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer starts serving the emu controls over HTTP on localhost:port.
func NewServer(port int, emu Emu) (*Server, error) {
	rs := rpc.NewServer()
	if err := rs.RegisterName("emu", &emuProxy{emu: emu}); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, rs)

	l, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}

	s := &Server{srv: &http.Server{Handler: mux}, ln: l}
	go func() {
		if err := s.srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			modRPC.ErrorZ("rpc server stopped").Error("err", err).End()
		}
	}()

	modRPC.InfoZ("rpc server listening").Int("port", port).End()
	return s, nil
}

func (s *Server) Close() error {
	return s.srv.Close()
}
