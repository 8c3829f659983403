// Package sys classifies the "version made by" host-system byte a ZIP
// central directory entry carries, for the purpose of interpreting
// its external-attributes field (see ExternalAttributes in entry.go).
//
// Only the host-system classification survives here; file-metadata
// helpers for populating version_made_by/external_attributes when
// writing an entry (GetFileMetadata, unixNanoToWinFiletime, Windows
// volume-info lookups) are dropped since this module never writes
// archives.
package sys

// HostSystem is the upper byte of a central directory entry's
// version_made_by field (APPNOTE 4.4.2).
type HostSystem uint8

const (
	HostSystemFAT       HostSystem = 0
	HostSystemAmiga     HostSystem = 1
	HostSystemOpenVMS   HostSystem = 2
	HostSystemUNIX      HostSystem = 3
	HostSystemVMCMS     HostSystem = 4
	HostSystemAtariST   HostSystem = 5
	HostSystemOS2HPFS   HostSystem = 6
	HostSystemMacintosh HostSystem = 7
	HostSystemZSystem   HostSystem = 8
	HostSystemCPM       HostSystem = 9
	HostSystemNTFS      HostSystem = 10
	HostSystemMVS       HostSystem = 11
	HostSystemVSE       HostSystem = 12
	HostSystemAcornRisc HostSystem = 13
	HostSystemVFAT      HostSystem = 14
	HostSystemAltMVS    HostSystem = 15
	HostSystemBeOS      HostSystem = 16
	HostSystemTandem    HostSystem = 17
	HostSystemOS400     HostSystem = 18
	HostSystemDarwin    HostSystem = 19
)

var hostSystemNames = map[HostSystem]string{
	HostSystemFAT:       "MS-DOS/OS2 (FAT)",
	HostSystemAmiga:     "Amiga",
	HostSystemOpenVMS:   "OpenVMS",
	HostSystemUNIX:      "UNIX",
	HostSystemVMCMS:     "VM/CMS",
	HostSystemAtariST:   "Atari ST",
	HostSystemOS2HPFS:   "OS/2 HPFS",
	HostSystemMacintosh: "Macintosh",
	HostSystemZSystem:   "Z-System",
	HostSystemCPM:       "CP/M",
	HostSystemNTFS:      "Windows NTFS",
	HostSystemMVS:       "MVS (OS/390 - Z/OS)",
	HostSystemVSE:       "VSE",
	HostSystemAcornRisc: "Acorn Risc",
	HostSystemVFAT:      "VFAT",
	HostSystemAltMVS:    "Alternate MVS",
	HostSystemBeOS:      "BeOS",
	HostSystemTandem:    "Tandem",
	HostSystemOS400:     "OS/400",
	HostSystemDarwin:    "OS X (Darwin)",
}

func (h HostSystem) String() string {
	if name, ok := hostSystemNames[h]; ok {
		return name
	}
	return "Unknown"
}

// IsUnix reports whether external_attributes should be interpreted as
// a packed struct stat mode (high 16 bits) per the Info-ZIP convention.
func (h HostSystem) IsUnix() bool {
	switch h {
	case HostSystemUNIX, HostSystemDarwin:
		return true
	default:
		return false
	}
}

// IsWindows reports whether external_attributes should be interpreted
// as FAT/NTFS file attribute bits.
func (h HostSystem) IsWindows() bool {
	switch h {
	case HostSystemFAT, HostSystemNTFS, HostSystemVFAT:
		return true
	default:
		return false
	}
}

// POSIX file-type bits within a Unix external_attributes mode, as
// packed into the high word per the Info-ZIP convention.
const (
	S_IFMT   = 0170000
	S_IFSOCK = 0140000
	S_IFLNK  = 0120000
	S_IFREG  = 0100000
	S_IFBLK  = 0060000
	S_IFDIR  = 0040000
	S_IFCHR  = 0020000
	S_IFIFO  = 0010000
)
