//go:build linux

package probe

import "golang.org/x/sys/unix"

// nfsSuperMagic is NFS's f_type value on Linux statfs(2).
const nfsSuperMagic = 0x6969

// IsNFS reports whether dir resides on an NFS-mounted filesystem.
func IsNFS(dir string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false
	}
	return int64(st.Type) == nfsSuperMagic
}
