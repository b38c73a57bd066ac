package ipmi

import "errors"

// Common errors
var (
	ErrNoResponse    = errors.New("no response from BMC")
	ErrShortResponse = errors.New("short response from BMC")
)

// BMCAddr is the IPMB address of the baseboard management controller.
const BMCAddr = 0x20

// Request is a raw command frame addressed to a management controller.
// Data is sent byte-exact; the register protocol depends on that.
type Request struct {
	Addr  uint8 // target controller address (BMCAddr for the BMC)
	NetFn uint8
	Lun   uint8
	Cmd   uint8
	Data  []byte
}

// Response carries the completion code and response bytes of a command.
type Response struct {
	CompletionCode uint8
	Data           []byte
}

// Status returns the first response byte. Register reads place the
// 8-bit bay status there.
func (r *Response) Status() (uint8, error) {
	if len(r.Data) == 0 {
		return 0, ErrShortResponse
	}
	return r.Data[0], nil
}

// Transport sends raw command frames to a management controller and
// returns the raw response. Implementations block until the controller
// answers or the underlying driver times out; retry policy belongs to
// the implementation, never to callers.
type Transport interface {
	Execute(req *Request) (*Response, error)
	Close() error
}
