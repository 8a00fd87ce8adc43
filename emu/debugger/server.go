package debugger

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"sixtyfive/emu/log"
)

// Handler returns the HTTP handler serving the debugger websocket on /ws.
func (d *Debugger) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebsocket(d))
	return mux
}

// ListenAndServe serves the debugger websocket on hostport, in the background.
func (d *Debugger) ListenAndServe(hostport string) (io.Closer, error) {
	ln, err := net.Listen("tcp", hostport)
	if err != nil {
		return nil, err
	}

	server := &http.Server{Handler: d.Handler()}
	go func() {
		log.ModDbg.InfoZ("Debugger server listening").String("addr", ln.Addr().String()).End()
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.ModDbg.ErrorZ("debugger server stopped").Error("err", err).End()
		}
	}()
	return server, nil
}

// handleWebsocket returns the WebSocket handler for the debugger to connect.
func handleWebsocket(dbg *Debugger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var upgrader = websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		}
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.ModDbg.ErrorZ("failed to perform websocket handshake").Error("err", err).End()
			return
		}
		defer ws.Close()

		log.ModDbg.DebugZ("websocket handshake success").End()

		if err := newWsDriver(dbg, ws).drive(); err != nil {
			log.ModDbg.DebugZ("connection to debugger ended").Error("err", err).End()
		}
	}
}
