//go:build darwin

package probe

import "golang.org/x/sys/unix"

// IsNFS reports whether dir resides on an NFS-mounted filesystem, using the
// textual filesystem type name since Darwin's Statfs_t carries no f_type
// magic number field.
func IsNFS(dir string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return false
	}
	name := make([]byte, 0, len(st.Fstypename))
	for _, b := range st.Fstypename {
		if b == 0 {
			break
		}
		name = append(name, byte(b))
	}
	return string(name) == "nfs"
}
