package imaging

import "errors"

// ErrWrite is returned when unmounting, copying or ejecting fails, or the
// image cannot be used.
var ErrWrite = errors.New("image write failed")
