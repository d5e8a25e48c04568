package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

const (
	major = 0
	minor = 1
	patch = 0

	// Oldest version the contract can be updated from.
	prevMajor = 0
	prevMinor = 0
	prevPatch = 0

	Version = major*1_000_000 + minor*1_000 + patch

	PrevVersion = prevMajor*1_000_000 + prevMinor*1_000 + prevPatch

	// ErrVersionMismatch means the deployed contract is too old to be updated.
	ErrVersionMismatch = "unsupported previous version"

	// ErrAlreadyUpdated means the deployed contract already runs Version.
	ErrAlreadyUpdated = "update to the same version"
)

// CheckVersion panics if the contract of version from can't be updated to
// Version.
func CheckVersion(from int) {
	if from < PrevVersion {
		panic(ErrVersionMismatch + ": " + std.Itoa(from, 10) + " < " + std.Itoa(PrevVersion, 10))
	}
	if from == Version {
		panic(ErrAlreadyUpdated + ": " + std.Itoa(Version, 10))
	}
}

// AppendVersion returns update data with Version appended.
func AppendVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}
