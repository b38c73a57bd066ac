package amd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/amdledctl/amdledctl/internal/ipmi"
	"github.com/amdledctl/amdledctl/internal/logging"
)

// mockTransport simulates the BMC register file. Frames alternate
// read/write per the protocol: a 5-byte read names the register in its
// last byte, the following 5-byte frame carries the new status for
// that register. 4-byte frames are enablement probes.
type mockTransport struct {
	registers   map[uint8]uint8
	frames      [][]byte
	pendingReg  *uint8
	failReads   map[uint8]error
	failWrites  map[uint8]error
	probeStatus uint8
	probeErr    error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		registers:  make(map[uint8]uint8),
		failReads:  make(map[uint8]error),
		failWrites: make(map[uint8]error),
	}
}

func (m *mockTransport) Execute(req *ipmi.Request) (*ipmi.Response, error) {
	m.frames = append(m.frames, append([]byte(nil), req.Data...))

	if len(req.Data) == 4 {
		if m.probeErr != nil {
			return nil, m.probeErr
		}
		return &ipmi.Response{Data: []byte{m.probeStatus}}, nil
	}

	if m.pendingReg == nil {
		reg := req.Data[4]
		if err, ok := m.failReads[reg]; ok {
			return nil, err
		}
		m.pendingReg = &reg
		return &ipmi.Response{Data: []byte{m.registers[reg]}}, nil
	}

	reg := *m.pendingReg
	m.pendingReg = nil
	if err, ok := m.failWrites[reg]; ok {
		return nil, err
	}
	m.registers[reg] = req.Data[4]
	return &ipmi.Response{Data: []byte{0}}, nil
}

func (m *mockTransport) Close() error { return nil }

func newTestController(t *testing.T, transport ipmi.Transport) *Controller {
	t.Helper()
	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceIPMI, Variant: VariantEthanolX}, transport, t.TempDir())
	require.NoError(t, err)
	return ctrl
}

func testDrive(bay int) *Drive {
	return &Drive{
		Path:        "/sys/devices/pci0000:00/ata1/",
		Kind:        KindSATA,
		Port:        bay,
		Bay:         bay,
		LastApplied: ibpi.PatternUnknown,
	}
}

func TestWriteEnablesSingleRegister(t *testing.T) {
	mt := newMockTransport()
	ctrl := newTestController(t, mt)
	d := testDrive(3)

	require.NoError(t, ctrl.Write(d, ibpi.PatternFailedDrive))

	assert.Equal(t, uint8(0b100), mt.registers[0x44])
	assert.Equal(t, ibpi.PatternFailedDrive, d.LastApplied)

	// One read-modify-write pair, channel and slave address fixed
	require.Len(t, mt.frames, 2)
	assert.Equal(t, []byte{0x0d, 0xc0, 0x00, 0x00, 0x44}, mt.frames[0])
	assert.Equal(t, []byte{0x0d, 0xc0, 0x00, 0x00, 0b100}, mt.frames[1])
}

func TestWriteIdempotent(t *testing.T) {
	mt := newMockTransport()
	ctrl := newTestController(t, mt)
	d := testDrive(1)

	require.NoError(t, ctrl.Write(d, ibpi.PatternLocate))
	framesAfterFirst := len(mt.frames)

	// Second request for the same pattern touches no hardware
	require.NoError(t, ctrl.Write(d, ibpi.PatternLocate))
	assert.Equal(t, framesAfterFirst, len(mt.frames))
}

func TestWritePreservesSiblingBays(t *testing.T) {
	mt := newMockTransport()
	mt.registers[0x42] = 0b10100001
	ctrl := newTestController(t, mt)
	d := testDrive(2)

	require.NoError(t, ctrl.Write(d, ibpi.PatternLocate))
	assert.Equal(t, uint8(0b10100011), mt.registers[0x42])

	// Disabling restores the register's prior state exactly
	require.NoError(t, ctrl.Write(d, ibpi.PatternLocateOff))
	assert.Equal(t, uint8(0b10100001), mt.registers[0x42])
}

func TestWriteLocateOffOnlyTouchesLocateRegister(t *testing.T) {
	mt := newMockTransport()
	mt.registers[0x42] = 0b1
	mt.registers[0x44] = 0b1
	ctrl := newTestController(t, mt)
	d := testDrive(1)

	require.NoError(t, ctrl.Write(d, ibpi.PatternLocateOff))

	assert.Equal(t, uint8(0), mt.registers[0x42])
	assert.Equal(t, uint8(0b1), mt.registers[0x44])
	assert.Len(t, mt.frames, 2)
}

func TestWriteNormalDisablesAllButHotspare(t *testing.T) {
	mt := newMockTransport()
	for _, reg := range []uint8{0x41, 0x42, 0x44, 0x45, 0x46, 0x47} {
		mt.registers[reg] = 0b1111
	}
	ctrl := newTestController(t, mt)
	d := testDrive(2)

	require.NoError(t, ctrl.Write(d, ibpi.PatternNormal))

	for _, reg := range []uint8{0x41, 0x42, 0x44, 0x45, 0x46} {
		assert.Equal(t, uint8(0b1101), mt.registers[reg], "register %#02x", reg)
	}
	// Hotspare is not part of the disable sweep
	assert.Equal(t, uint8(0b1111), mt.registers[0x47])
	assert.Equal(t, ibpi.PatternNormal, d.LastApplied)
}

func TestDisableAllContinuesAfterFailure(t *testing.T) {
	mt := newMockTransport()
	for _, reg := range []uint8{0x41, 0x42, 0x44, 0x45, 0x46} {
		mt.registers[reg] = 0b1
	}
	readErr := errors.New("bmc busy")
	mt.failReads[0x44] = readErr
	ctrl := newTestController(t, mt)
	d := testDrive(1)

	err := ctrl.Write(d, ibpi.PatternNormal)
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)

	// Registers after the failing one were still cleared
	assert.Equal(t, uint8(0), mt.registers[0x45])
	assert.Equal(t, uint8(0), mt.registers[0x46])
	assert.Equal(t, uint8(0b1), mt.registers[0x44])

	// The failed sweep must not advance the applied pattern
	assert.Equal(t, ibpi.PatternUnknown, d.LastApplied)
}

func TestWriteFailureKeepsLastApplied(t *testing.T) {
	mt := newMockTransport()
	mt.failWrites[0x42] = errors.New("timeout")
	ctrl := newTestController(t, mt)
	d := testDrive(1)

	err := ctrl.Write(d, ibpi.PatternLocate)
	require.Error(t, err)
	assert.Equal(t, ibpi.PatternUnknown, d.LastApplied)
}

func TestWriteInvalidBay(t *testing.T) {
	mt := newMockTransport()
	ctrl := newTestController(t, mt)
	d := testDrive(9)

	err := ctrl.Write(d, ibpi.PatternLocate)
	require.Error(t, err)
	assert.Empty(t, mt.frames)
}

func TestWriteUnsetInterface(t *testing.T) {
	ctrl, err := New(logging.GetLogger("test"), Platform{}, nil, t.TempDir())
	require.NoError(t, err)

	err = ctrl.Write(testDrive(1), ibpi.PatternLocate)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNewRequiresTransportForIPMI(t *testing.T) {
	_, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceIPMI, Variant: VariantDaytonaX}, nil, t.TempDir())
	assert.Error(t, err)
}

func TestEmEnabledProbe(t *testing.T) {
	mt := newMockTransport()
	mt.probeStatus = chipIDMG9098
	ctrl := newTestController(t, mt)

	assert.True(t, ctrl.EmEnabled(""))
	require.Len(t, mt.frames, 1)
	assert.Equal(t, []byte{0x0d, 0xc0, 0x01, 0x63}, mt.frames[0])
}

func TestEmEnabledProbeWrongChip(t *testing.T) {
	mt := newMockTransport()
	mt.probeStatus = 0
	ctrl := newTestController(t, mt)
	assert.False(t, ctrl.EmEnabled(""))
}

func TestEmEnabledProbeTransportError(t *testing.T) {
	mt := newMockTransport()
	mt.probeErr = errors.New("no bmc")
	ctrl := newTestController(t, mt)
	assert.False(t, ctrl.EmEnabled(""))
}

func TestEmEnabledUnsetInterface(t *testing.T) {
	ctrl, err := New(logging.GetLogger("test"), Platform{}, nil, t.TempDir())
	require.NoError(t, err)
	assert.False(t, ctrl.EmEnabled("/sys/devices"))
}

func TestGetPathRouting(t *testing.T) {
	ctrl := newTestController(t, newMockTransport())

	got, err := ctrl.GetPath("/sys/devices/pci0000:e0/nvme/0000:e3:00.0", "/sys/block/nvme0n1")
	require.NoError(t, err)
	assert.Equal(t, "/sys/block/nvme0n1", got)

	got, err = ctrl.GetPath("/sys/devices/pci0000:00/ata3/host2/target", "/sys/block/sda")
	require.NoError(t, err)
	assert.Equal(t, "/sys/devices/pci0000:00/ata3/", got)

	_, err = ctrl.GetPath("/sys/devices/pci0000:00/host2", "/sys/block/sda")
	assert.Error(t, err)
}

func TestGetPathAttentionRouting(t *testing.T) {
	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceAttention, Variant: VariantLenovo}, nil, t.TempDir())
	require.NoError(t, err)

	// SATA paths keep the ata truncation even on the attention interface
	got, err := ctrl.GetPath("/sys/devices/pci0000:00/ata3/host2/target", "/sys/block/sda")
	require.NoError(t, err)
	assert.Equal(t, "/sys/devices/pci0000:00/ata3/", got)

	got, err = ctrl.GetPath("/sys/devices/pci0000:e0/0000:e3:00.0/nvme/nvme0", "/sys/block/nvme0n1")
	require.NoError(t, err)
	assert.Equal(t, "/sys/block/nvme0n1", got)
}

func TestGetPathUnsetInterface(t *testing.T) {
	ctrl, err := New(logging.GetLogger("test"), Platform{}, nil, t.TempDir())
	require.NoError(t, err)

	_, err = ctrl.GetPath("/sys/devices/pci0000:00/ata3/", "/sys/block/sda")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestResolveDriveNVMe(t *testing.T) {
	mt := newMockTransport()
	slotsDir := t.TempDir()
	writeSlot(t, slotsDir, "10", "0000:e3:00")

	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceIPMI, Variant: VariantDaytonaX}, mt, slotsDir)
	require.NoError(t, err)

	d, err := ctrl.ResolveDrive("/sys/devices/pci0000:e0/0000:e0:03.3/nvme/0000:e3:00.0")
	require.NoError(t, err)

	assert.Equal(t, KindNVMe, d.Kind)
	assert.Equal(t, 8, d.Port) // slot 10 shifted by the Daytona offset
	assert.Equal(t, 8, d.Bay)
}

func TestResolveDriveSATA(t *testing.T) {
	mt := newMockTransport()
	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceIPMI, Variant: VariantDaytonaX}, mt, t.TempDir())
	require.NoError(t, err)

	d, err := ctrl.ResolveDrive("/sys/devices/pci0000:00/0000:00:11.4/ata11/host2/target2:0:0")
	require.NoError(t, err)

	assert.Equal(t, KindSATA, d.Kind)
	assert.Equal(t, 9, d.Port)
	assert.Equal(t, 1, d.Bay) // second MG9098 group wraps to bay 1
}

func TestResolveDrivePortOutOfRange(t *testing.T) {
	mt := newMockTransport()
	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceIPMI, Variant: VariantEthanolX}, mt, t.TempDir())
	require.NoError(t, err)

	_, err = ctrl.ResolveDrive("/sys/devices/pci0000:00/ata3/host2/target2:0:0")
	assert.ErrorContains(t, err, "outside valid range")
}

func TestResolveDriveUnknownKind(t *testing.T) {
	ctrl := newTestController(t, newMockTransport())
	_, err := ctrl.ResolveDrive("/sys/devices/pci0000:00/host2/target2:0:0")
	assert.ErrorContains(t, err, "device kind")
}

func TestSGPIOWrite(t *testing.T) {
	slotDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(slotDir, "locate"), []byte("0"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(slotDir, "fault"), []byte("0"), 0644))

	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceSGPIO}, nil, t.TempDir())
	require.NoError(t, err)

	d := &Drive{Path: slotDir, Kind: KindSATA, Port: 1, Bay: 1, LastApplied: ibpi.PatternUnknown}
	require.NoError(t, ctrl.Write(d, ibpi.PatternLocate))

	data, err := os.ReadFile(filepath.Join(slotDir, "locate"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.NoError(t, ctrl.Write(d, ibpi.PatternFailedDrive))
	data, _ = os.ReadFile(filepath.Join(slotDir, "fault"))
	assert.Equal(t, "1", string(data))
	data, _ = os.ReadFile(filepath.Join(slotDir, "locate"))
	assert.Equal(t, "0", string(data))
}

func TestAttentionWrite(t *testing.T) {
	slotsDir := t.TempDir()
	attnDir := filepath.Join(slotsDir, "4")
	require.NoError(t, os.MkdirAll(attnDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(attnDir, "attention"), []byte("0"), 0644))

	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceAttention, Variant: VariantLenovo}, nil, slotsDir)
	require.NoError(t, err)

	d := &Drive{Path: "/sys", Kind: KindNVMe, Port: 4, Bay: 4, LastApplied: ibpi.PatternUnknown}
	require.NoError(t, ctrl.Write(d, ibpi.PatternLocate))

	data, err := os.ReadFile(filepath.Join(attnDir, "attention"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.NoError(t, ctrl.Write(d, ibpi.PatternNormal))
	data, _ = os.ReadFile(filepath.Join(attnDir, "attention"))
	assert.Equal(t, "0", string(data))
}

func TestAttentionWriteMissingSlot(t *testing.T) {
	ctrl, err := New(logging.GetLogger("test"),
		Platform{Interface: InterfaceAttention, Variant: VariantLenovo}, nil, t.TempDir())
	require.NoError(t, err)

	d := &Drive{Path: "/sys", Kind: KindNVMe, Port: 7, Bay: 7, LastApplied: ibpi.PatternUnknown}
	err = ctrl.Write(d, ibpi.PatternLocate)
	assert.ErrorContains(t, err, "attention control unavailable")
}
