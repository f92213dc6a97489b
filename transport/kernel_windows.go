//go:build windows

package transport

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/windows"
)

// IOCTL codes for the kernel-driver exchange (§4.5). Values follow the
// standard METHOD_BUFFERED / FILE_ANY_ACCESS encoding used by Windows
// device drivers of this shape.
const (
	fileDeviceUnknown = 0x00000022
	methodBuffered    = 0
	fileAnyAccess     = 0

	ioctlReceiveRequest = (fileDeviceUnknown << 16) | (fileAnyAccess << 14) | (0x800 << 2) | methodBuffered
	ioctlSendResponse   = (fileDeviceUnknown << 16) | (fileAnyAccess << 14) | (0x801 << 2) | methodBuffered
	ioctlSetBufferSize  = (fileDeviceUnknown << 16) | (fileAnyAccess << 14) | (0x802 << 2) | methodBuffered
)

// KernelDriver is the kernel-driver transport (§4.5): each request is
// pulled out of the driver with one blocking DeviceIoControl and each
// response is pushed back with another. Growing the caller's buffer
// also renegotiates the driver's notion of the maximum transfer size
// via IOCTL_SET_BUFFER_SIZE, matching the "buffer-grow protocol"
// DESIGN NOTES §9 calls out as kernel-driver-specific (the socket and
// shared-memory variants have nothing equivalent to tell).
type KernelDriver struct {
	handle     windows.Handle
	bufferSize int
}

// NewKernelDriver opens the control device at path (e.g. \\.\ImProxy)
// for the ioctl exchange.
func NewKernelDriver(path string) (*KernelDriver, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &KernelDriver{handle: h}, nil
}

func (k *KernelDriver) Read(buf []byte) error {
	var returned uint32
	err := windows.DeviceIoControl(k.handle, ioctlReceiveRequest, nil, 0, &buf[0], uint32(len(buf)), &returned, nil)
	if err != nil {
		return err
	}
	if int(returned) != len(buf) {
		return ErrInsufficientBuffer
	}
	return nil
}

func (k *KernelDriver) Write(buf []byte) error {
	var returned uint32
	return windows.DeviceIoControl(k.handle, ioctlSendResponse, &buf[0], uint32(len(buf)), nil, 0, &returned, nil)
}

// Flush has nothing to do for the kernel-driver transport: every
// DeviceIoControl call is already synchronous.
func (k *KernelDriver) Flush() error { return nil }

func (k *KernelDriver) Grow(newSize int) error {
	if newSize <= k.bufferSize {
		return nil
	}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(newSize))
	var returned uint32
	if err := windows.DeviceIoControl(k.handle, ioctlSetBufferSize, &payload[0], uint32(len(payload)), nil, 0, &returned, nil); err != nil {
		return fmt.Errorf("kernel driver rejected buffer grow to %d: %w", newSize, err)
	}
	k.bufferSize = newSize
	return nil
}

func (k *KernelDriver) Close() error {
	return windows.CloseHandle(k.handle)
}
