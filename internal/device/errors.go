package device

import "errors"

// ErrInventory is returned when the OS device query fails or its output cannot be read.
var ErrInventory = errors.New("device inventory failed")
