package amd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amdledctl/amdledctl/internal/logging"
)

// Interface is the LED signaling mechanism a platform supports.
type Interface int

const (
	// InterfaceUnset means detection has not produced a usable backend.
	// This is distinct from the SGPIO default: IPMI-path operations on
	// an unset platform fail with ErrUnsupported instead of guessing.
	InterfaceUnset Interface = iota
	InterfaceSGPIO
	InterfaceIPMI
	InterfaceAttention
)

func (i Interface) String() string {
	switch i {
	case InterfaceSGPIO:
		return "sgpio"
	case InterfaceIPMI:
		return "ipmi"
	case InterfaceAttention:
		return "attention"
	default:
		return "unset"
	}
}

// Variant names a known platform for IPMI channel and address selection.
type Variant int

const (
	VariantNone Variant = iota
	VariantEthanolX
	VariantDaytonaX
	VariantLenovo
)

func (v Variant) String() string {
	switch v {
	case VariantEthanolX:
		return "ETHANOL_X"
	case VariantDaytonaX:
		return "DAYTONA_X"
	case VariantLenovo:
		return "Lenovo"
	default:
		return "none"
	}
}

// Platform is the resolved LED-control identity of the running machine.
// It is computed once and threaded explicitly through the controller;
// there is no hidden process-wide platform state.
type Platform struct {
	Interface Interface
	Variant   Variant
	Product   string
}

// platformPrefixes maps firmware product names to LED interfaces.
// Matching is by literal prefix and case-sensitive.
var platformPrefixes = []struct {
	prefix  string
	iface   Interface
	variant Variant
}{
	{"ETHANOL_X", InterfaceIPMI, VariantEthanolX},
	{"DAYTONA_X", InterfaceIPMI, VariantDaytonaX},
	{"ThinkSystem SR655 V3", InterfaceAttention, VariantLenovo},
}

// DetectPlatform reads the firmware product name from the DMI id
// directory and maps it to a known platform. An unreadable identity
// file is not an error; it yields the conservative SGPIO default.
func DetectPlatform(log logging.Logger, dmiIDDir string) Platform {
	p := Platform{Interface: InterfaceSGPIO, Variant: VariantNone}

	data, err := os.ReadFile(filepath.Join(dmiIDDir, "product_name"))
	if err != nil {
		log.Debug("product name unreadable, defaulting to SGPIO", "error", err)
		return p
	}
	p.Product = strings.TrimSpace(string(data))

	for _, entry := range platformPrefixes {
		if strings.HasPrefix(p.Product, entry.prefix) {
			p.Interface = entry.iface
			p.Variant = entry.variant
			log.Debug("platform detected",
				"product", p.Product, "interface", p.Interface.String(), "variant", p.Variant.String())
			return p
		}
	}

	log.Debug("unrecognized product name, defaulting to SGPIO", "product", p.Product)
	return p
}

// ParsePlatform converts a configured platform override into a
// Platform value, bypassing firmware detection.
func ParsePlatform(name string) (Platform, error) {
	for _, entry := range platformPrefixes {
		if name == entry.prefix {
			return Platform{Interface: entry.iface, Variant: entry.variant, Product: name}, nil
		}
	}
	if name == "SGPIO" || name == "sgpio" {
		return Platform{Interface: InterfaceSGPIO, Variant: VariantNone, Product: name}, nil
	}
	return Platform{}, fmt.Errorf("unknown platform override %q", name)
}

// channel returns the BMC channel byte for the platform variant.
func (p Platform) channel() uint8 {
	switch p.Variant {
	case VariantEthanolX:
		return 0x0d
	case VariantDaytonaX:
		return 0x17
	default:
		return 0x00
	}
}

// adjustPort converts the raw slot or ATA port number into the
// platform's physical port numbering.
func (p Platform) adjustPort(port int) int {
	switch p.Variant {
	case VariantDaytonaX:
		return port - 2
	case VariantEthanolX:
		return port - 7
	default:
		return port
	}
}

// tailAddr selects the slave address of the MG9098 chip controlling
// the drive. Each chip controls 8 drives; Daytona routes NVMe drives
// and high SATA ports to the later chips.
func (p Platform) tailAddr(kind DeviceKind, port int) uint8 {
	if p.Variant == VariantDaytonaX {
		if kind == KindNVMe {
			return 0xc4
		}
		switch {
		case port <= 8:
			return 0xc0
		case port <= 16:
			return 0xc2
		default:
			return 0xc4
		}
	}
	return 0xc0
}
