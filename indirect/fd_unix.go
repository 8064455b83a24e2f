//go:build unix

package indirect

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/ProtonMail/sop-external/sop"
)

func openDescriptor(d Designator, write bool) (*os.File, error) {
	fd := int(d.FD)
	if uint64(fd) != d.FD || fd < 0 {
		return nil, sop.NewError(sop.KindMissingInput, "descriptor out of range in "+d.Raw)
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, sop.WrapError(sop.KindMissingInput, err, "descriptor "+d.Raw+" is not open")
	}
	mode := flags & unix.O_ACCMODE
	if write && mode == unix.O_RDONLY || !write && mode == unix.O_WRONLY {
		return nil, sop.NewError(sop.KindMissingInput, "descriptor "+d.Raw+" has the wrong access mode")
	}
	// Closing the returned file must leave the caller's descriptor open.
	dup, err := unix.Dup(fd)
	if err != nil {
		return nil, sop.WrapError(sop.KindMissingInput, err, "cannot duplicate descriptor "+d.Raw)
	}
	unix.CloseOnExec(dup)
	return os.NewFile(uintptr(dup), "fd"+strconv.Itoa(fd)), nil
}
