package zread

import (
	"io/fs"
	"strings"

	"github.com/zreadio/zread/internal/headers"
	"github.com/zreadio/zread/internal/sys"
)

// classifyDirectory reports whether the central directory record's
// external_attributes mark the entry as a directory, independent of the
// filename-trailing-slash convention checked below when the host system
// is unrecognized.
//
// Trimmed to the single boolean this reader's Entry.directory needs;
// the full fs.FileMode reconstruction lives in FileMode below.
func classifyDirectory(raw headers.CentralDirectory) bool {
	hostSystem := sys.HostSystem(raw.VersionMadeBy >> 8)
	switch {
	case hostSystem.IsUnix():
		return (raw.ExternalFileAttributes>>16)&sys.S_IFMT == sys.S_IFDIR
	case hostSystem.IsWindows():
		return raw.ExternalFileAttributes&0x10 != 0
	default:
		return strings.HasSuffix(string(raw.RawFilename), "/")
	}
}

// FileMode reconstructs an fs.FileMode from the entry's
// external_attributes field, interpreted according to the host system
// recorded in version_made_by. This is a convenience accessor over
// already-parsed header bytes, not a new archive feature.
func (e *Entry) FileMode() fs.FileMode {
	hostSystem := sys.HostSystem(e.versionMadeBy >> 8)

	if hostSystem.IsUnix() {
		unixMode := e.externalAttributes >> 16
		mode := fs.FileMode(unixMode & 0777)
		switch unixMode & sys.S_IFMT {
		case sys.S_IFDIR:
			mode |= fs.ModeDir
		case sys.S_IFLNK:
			mode |= fs.ModeSymlink
		case sys.S_IFSOCK:
			mode |= fs.ModeSocket
		case sys.S_IFIFO:
			mode |= fs.ModeNamedPipe
		case sys.S_IFCHR:
			mode |= fs.ModeCharDevice
		case sys.S_IFBLK:
			mode |= fs.ModeDevice
		}
		return mode
	}

	if hostSystem.IsWindows() {
		var mode fs.FileMode = 0644
		if e.directory {
			mode = 0755 | fs.ModeDir
		}
		if e.externalAttributes&0x01 != 0 {
			mode &^= 0222 // read-only attribute bit
		}
		return mode
	}

	if e.directory {
		return 0755 | fs.ModeDir
	}
	return 0644
}
