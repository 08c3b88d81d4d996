package style

import "strconv"

const unit = 1024

// Bytes renders a byte count with a binary unit suffix, e.g. "1.5 GiB".
func Bytes(n int64) string {
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
