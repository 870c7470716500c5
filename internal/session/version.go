package session

import (
	"strconv"
	"strings"
)

// VersionNumber maps a dotted version, optionally followed by -patch, to an
// orderable integer. The last dotted part is scaled by ten to leave room
// for the patch: 1.1.10 is 1001100 and 1.2.3-1 is 1002031.
func VersionNumber(v string) int64 {
	main, patch, hasPatch := strings.Cut(v, "-")
	var n, last int64
	for _, x := range strings.Split(main, ".") {
		last, _ = strconv.ParseInt(x, 10, 64)
		n = n*1000 + last
	}
	n += last * 9
	if hasPatch {
		p, _ := strconv.ParseInt(patch, 10, 64)
		n += p
	}
	return n
}
