//go:build !unix

package indirect

import (
	"os"

	"github.com/ProtonMail/sop-external/sop"
)

func openDescriptor(d Designator, _ bool) (*os.File, error) {
	return nil, sop.NewError(sop.KindUnsupportedSpecialPrefix, "descriptors are not supported on this platform: "+d.Raw)
}
