package dnsmsg

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

// BlockingMode defines how the blocked DNS requests are answered.
type BlockingMode string

// BlockingMode values.
const (
	// BlockingModeNXDOMAIN answers with NXDOMAIN.
	BlockingModeNXDOMAIN BlockingMode = "nxdomain"

	// BlockingModeNullIP answers A and AAAA requests with the unspecified
	// address of the family and other requests with NODATA.
	BlockingModeNullIP BlockingMode = "null_ip"

	// BlockingModeRefused answers with REFUSED.
	BlockingModeRefused BlockingMode = "refused"
)

// Validate returns an error if m isn't a known blocking mode.
func (m BlockingMode) Validate() (err error) {
	switch m {
	case BlockingModeNXDOMAIN, BlockingModeNullIP, BlockingModeRefused:
		return nil
	default:
		return fmt.Errorf("blocking mode: %w: %q", errors.ErrBadEnumValue, m)
	}
}
