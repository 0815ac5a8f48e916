package hostinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

const DefaultDMIRoot = "/sys/class/dmi/id"

// identifiers are read in this order; the order is part of the identity.
var identifiers = []string{
	"product_uuid",
	"board_serial",
	"product_serial",
	"chassis_serial",
}

// DMI derives a machine identity from firmware identifiers.
type DMI struct {
	Root string
}

func NewDMI() DMI {
	return DMI{Root: DefaultDMIRoot}
}

// MachineID returns the hex SHA-256 of the readable identifiers, or "" when
// none can be read.
func (d DMI) MachineID() string {
	root := d.Root
	if root == "" {
		root = DefaultDMIRoot
	}

	var parts []string
	for _, name := range identifiers {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(b)); v != "" {
			parts = append(parts, name+"="+v)
		}
	}

	if len(parts) == 0 {
		return ""
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}
