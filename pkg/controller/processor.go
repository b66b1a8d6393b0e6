package controller

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/util"
)

// RequestProcessor handles one decoded command of a single request code.
type RequestProcessor interface {
	Process(conn Conn, cmd *protocol.RemotingCommand) (Result, error)
}

// Result is either an immediate response or a pending marker. A pending
// result means the response will be written later by someone else.
type Result struct {
	datagram *protocol.Datagram
	pending  bool
}

func Immediate(d *protocol.Datagram) Result {
	return Result{datagram: d}
}

func Pending() Result {
	return Result{pending: true}
}

func (r Result) IsPending() bool { return r.pending }

// Datagram returns the immediate response, nil when pending.
func (r Result) Datagram() *protocol.Datagram { return r.datagram }

// Router maps request codes to processors.
type Router struct {
	mu         sync.RWMutex
	processors map[int16]RequestProcessor
}

func NewRouter() *Router {
	return &Router{processors: make(map[int16]RequestProcessor)}
}

func (r *Router) Register(code int16, p RequestProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[code] = p
}

// Dispatch runs the processor registered for cmd. Unknown codes are answered
// immediately with CodeUnknownCode.
func (r *Router) Dispatch(conn Conn, cmd *protocol.RemotingCommand) (Result, error) {
	r.mu.RLock()
	p, ok := r.processors[cmd.Header.Code]
	r.mu.RUnlock()

	if !ok {
		util.Warn("unknown request code %d from %s", cmd.Header.Code, conn.RemoteAddr())
		return Immediate(protocol.BuildEmptyResponse(protocol.CodeUnknownCode, cmd.Header)), nil
	}

	result, err := p.Process(conn, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("process request code %d: %w", cmd.Header.Code, err)
	}
	return result, nil
}
