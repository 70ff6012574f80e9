package device

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

// UntitledLabel is shown for devices without a volume label.
const UntitledLabel = "Untitled"

// UnknownContent is the content tag of devices whose format the OS does not report.
const UnknownContent = "Unknown"

// Device is a block device as reported by the OS at query time.
type Device struct {
	Path      string `json:"path"`
	Label     string `json:"label"`
	Size      uint64 `json:"size"`
	Content   string `json:"content"`
	Removable bool   `json:"removable"`
	Ejectable bool   `json:"ejectable"`
}

// SizeGB returns the capacity in GiB, the unit storage cards are usually compared in.
func (d Device) SizeGB() float64 {
	return float64(d.Size) / (1024 * 1024 * 1024)
}

// HumanSize formats the capacity for display, e.g. "29.8 GB".
func (d Device) HumanSize() string {
	return datasize.ByteSize(d.Size).HumanReadable()
}

// DisplayName combines the label and path, omitting placeholder labels.
func (d Device) DisplayName() string {
	if d.Label != "" && d.Label != UntitledLabel {
		return fmt.Sprintf("%s (%s)", d.Label, d.Path)
	}
	return d.Path
}
