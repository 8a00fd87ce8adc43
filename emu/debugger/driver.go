package debugger

import (
	"fmt"
	"sync"

	"github.com/go-faster/jx"
	"github.com/gorilla/websocket"

	"sixtyfive/emu/log"
)

type wsdriver struct {
	dbg *Debugger
	ws  *websocket.Conn

	wmu sync.Mutex // serializes writes

	handlers map[string]wsHandlerFunc
}

type wsHandlerFunc func(data jx.Raw) ([]byte, error)

func newWsDriver(dbg *Debugger, ws *websocket.Conn) *wsdriver {
	drv := &wsdriver{
		dbg:      dbg,
		ws:       ws,
		handlers: make(map[string]wsHandlerFunc),
	}
	drv.handlers[evGetState] = drv.handleGetState
	drv.handlers[evSetCPUState] = drv.handleSetCPUState
	drv.handlers[evSetBreakpoint] = drv.handleSetBreakpoint
	return drv
}

func (d *wsdriver) send(msg []byte) error {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	return d.ws.WriteMessage(websocket.TextMessage, msg)
}

func (d *wsdriver) drive() error {
	log.ModDbg.DebugZ("debugger connection initiated").End()

	events, unsubscribe := d.dbg.Subscribe()
	defer unsubscribe()

	if err := d.send(encodeState(d.dbg.State())); err != nil {
		return fmt.Errorf("failed to send initial state: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case st := <-events:
				if err := d.send(encodeState(st)); err != nil {
					log.ModDbg.ErrorZ("failed to send state event").Error("err", err).End()
				}
			case <-done:
				return
			}
		}
	}()

	for {
		// Wait for next request from the debugger.
		_, buf, err := d.ws.ReadMessage()
		if err != nil {
			return err
		}

		resp := d.handle(buf)
		if err := d.send(resp); err != nil {
			return err
		}
	}
}

func (d *wsdriver) handle(buf []byte) []byte {
	event, data, err := decodeMessage(buf)
	if err != nil {
		log.ModDbg.WarnZ("malformed debugger message").Blob("msg", buf).Error("err", err).End()
		return encodeError(err)
	}

	log.ModDbg.DebugZ("received message from debugger").
		String("event", event).
		String("data", data.String()).
		End()

	handler, ok := d.handlers[event]
	if !ok {
		log.ModDbg.WarnZ("received unknown debugger event").String("event", event).End()
		return encodeError(fmt.Errorf("unknown event %q", event))
	}

	resp, err := handler(data)
	if err != nil {
		log.ModDbg.ErrorZ("error handling debugger event").
			String("event", event).
			Error("err", err).
			End()
		return encodeError(err)
	}
	return resp
}

func (d *wsdriver) handleGetState(jx.Raw) ([]byte, error) {
	return encodeState(d.dbg.State()), nil
}

func (d *wsdriver) handleSetCPUState(data jx.Raw) ([]byte, error) {
	cpuState, err := decodeCPUState(data)
	if err != nil {
		return nil, err
	}

	switch cpuState {
	case "run":
		d.dbg.Continue()
	case "pause":
		d.dbg.Pause()
	case "step":
		d.dbg.Step()
	default:
		return nil, fmt.Errorf("unexpected cpu state: %s", cpuState)
	}
	return encodeState(d.dbg.State()), nil
}

func (d *wsdriver) handleSetBreakpoint(data jx.Raw) ([]byte, error) {
	var bp setBreakpointData
	if err := bp.decode(data); err != nil {
		return nil, err
	}
	d.dbg.SetBreakpoint(bp.Addr, bp.Enabled)
	return encodeBreakpoints(d.dbg.Breakpoints()), nil
}
