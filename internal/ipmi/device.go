package ipmi

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the OpenIPMI character device for the first BMC.
const DefaultDevice = "/dev/ipmi0"

const responseTimeout = 5 * time.Second

// OpenIPMI ioctl plumbing. Struct layouts mirror <linux/ipmi.h>.
const (
	ipmiIOCMagic = 'i'

	ipmiSystemInterfaceAddrType = 0x0c
	ipmiIPMBAddrType            = 0x01
	ipmiBMCChannel              = 0xf
	ipmiMaxAddrSize             = 32

	ipmiResponseRecvType = 1
)

type systemInterfaceAddr struct {
	addrType int32
	channel  int16
	lun      uint8
}

type ipmbAddr struct {
	addrType  int32
	channel   int16
	slaveAddr uint8
	lun       uint8
}

type ipmiMsg struct {
	netfn   uint8
	cmd     uint8
	dataLen uint16
	data    *uint8
}

type ipmiReq struct {
	addr    *byte
	addrLen uint32
	msgid   int64
	msg     ipmiMsg
}

type ipmiRecv struct {
	recvType int32
	addr     *byte
	addrLen  uint32
	msgid    int64
	msg      ipmiMsg
}

func ioctlSend() uintptr {
	// _IOR('i', 13, struct ipmi_req)
	return uintptr(2<<30) | uintptr(unsafe.Sizeof(ipmiReq{}))<<16 | uintptr(ipmiIOCMagic)<<8 | 13
}

func ioctlRecv() uintptr {
	// _IOWR('i', 11, struct ipmi_recv)
	return uintptr(3<<30) | uintptr(unsafe.Sizeof(ipmiRecv{}))<<16 | uintptr(ipmiIOCMagic)<<8 | 11
}

// kernelAddr picks the driver addressing for a request. Commands to
// the BMC go straight over the system interface; any other controller
// address is routed IPMB.
func kernelAddr(req *Request) (*systemInterfaceAddr, *ipmbAddr) {
	if req.Addr == BMCAddr {
		return &systemInterfaceAddr{
			addrType: ipmiSystemInterfaceAddrType,
			channel:  ipmiBMCChannel,
			lun:      req.Lun,
		}, nil
	}
	return nil, &ipmbAddr{
		addrType:  ipmiIPMBAddrType,
		slaveAddr: req.Addr,
		lun:       req.Lun,
	}
}

// Device is a Transport backed by the kernel OpenIPMI driver.
type Device struct {
	f     *os.File
	msgid int64
}

// Open opens an OpenIPMI character device (typically /dev/ipmi0).
func Open(path string) (*Device, error) {
	if path == "" {
		path = DefaultDevice
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open IPMI device %s: %w", path, err)
	}
	return &Device{f: f}, nil
}

// Close releases the IPMI device.
func (d *Device) Close() error {
	return d.f.Close()
}

// Execute sends one command frame to the addressed controller and
// blocks for its response.
func (d *Device) Execute(req *Request) (*Response, error) {
	d.msgid++

	sysAddr, ipmb := kernelAddr(req)
	var addrPtr *byte
	var addrLen uint32
	if sysAddr != nil {
		addrPtr = (*byte)(unsafe.Pointer(sysAddr))
		addrLen = uint32(unsafe.Sizeof(*sysAddr))
	} else {
		addrPtr = (*byte)(unsafe.Pointer(ipmb))
		addrLen = uint32(unsafe.Sizeof(*ipmb))
	}

	kreq := ipmiReq{
		addr:    addrPtr,
		addrLen: addrLen,
		msgid:   d.msgid,
		msg: ipmiMsg{
			netfn:   req.NetFn,
			cmd:     req.Cmd,
			dataLen: uint16(len(req.Data)),
		},
	}
	if len(req.Data) > 0 {
		kreq.msg.data = &req.Data[0]
	}

	if err := d.ioctl(ioctlSend(), unsafe.Pointer(&kreq)); err != nil {
		return nil, fmt.Errorf("failed to send IPMI command %#02x/%#02x: %w", req.NetFn, req.Cmd, err)
	}

	if err := d.waitReadable(); err != nil {
		return nil, err
	}

	buf := make([]byte, 64)
	recvAddr := make([]byte, ipmiMaxAddrSize)
	krecv := ipmiRecv{
		addr:    &recvAddr[0],
		addrLen: ipmiMaxAddrSize,
		msg: ipmiMsg{
			dataLen: uint16(len(buf)),
			data:    &buf[0],
		},
	}

	if err := d.ioctl(ioctlRecv(), unsafe.Pointer(&krecv)); err != nil {
		return nil, fmt.Errorf("failed to receive IPMI response: %w", err)
	}

	if krecv.recvType != ipmiResponseRecvType || krecv.msgid != d.msgid {
		return nil, ErrNoResponse
	}
	if krecv.msg.dataLen < 1 {
		return nil, ErrShortResponse
	}

	// First byte is the completion code, the rest is response data.
	resp := &Response{
		CompletionCode: buf[0],
		Data:           append([]byte(nil), buf[1:krecv.msg.dataLen]...),
	}
	if resp.CompletionCode != 0 {
		return nil, fmt.Errorf("IPMI command %#02x/%#02x failed: completion code %#02x",
			req.NetFn, req.Cmd, resp.CompletionCode)
	}

	return resp, nil
}

func (d *Device) ioctl(nr uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), nr, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// waitReadable blocks until the driver has a message queued for us.
func (d *Device) waitReadable() error {
	fds := []unix.PollFd{{Fd: int32(d.f.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(responseTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to poll IPMI device: %w", err)
	}
	if n == 0 {
		return ErrNoResponse
	}
	return nil
}
