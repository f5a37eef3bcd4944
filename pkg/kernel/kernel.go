package kernel

// Version is the running kernel's release, parsed from uname.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Flavor string
	valid  bool
}

// Valid reports whether the release string was readable and parseable.
func (v Version) Valid() bool {
	return v.valid
}

func Compare(a, b Version) int {
	if a.Major > b.Major {
		return 1
	} else if a.Major < b.Major {
		return -1
	}

	if a.Minor > b.Minor {
		return 1
	} else if a.Minor < b.Minor {
		return -1
	}

	if a.Patch > b.Patch {
		return 1
	} else if a.Patch < b.Patch {
		return -1
	}

	return 0
}

// AtLeast reports whether the running kernel is major.minor or newer.
// An unparseable release reports true, the kernel itself rejects what it
// does not support.
func AtLeast(major int, minor int) bool {
	v := Get()
	if !v.valid {
		return true
	}
	return Compare(v, Version{Major: major, Minor: minor, valid: true}) >= 0
}
