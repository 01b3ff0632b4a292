package layout

import (
	"fmt"

	"github.com/arloliu/chunkfield/errs"
	"github.com/arloliu/chunkfield/version"
)

// Policy holds the version boundaries used to pick a Variant.
//
// Versions strictly between WrappedAfter and WrappedBefore resolve to
// IntermediateWrapped, versions at or above CurrentFrom resolve to Current,
// and everything else resolves to Legacy. A policy with an empty wrapped
// window is a two-way split between Legacy and Current.
type Policy struct {
	WrappedAfter  version.Version
	WrappedBefore version.Version
	CurrentFrom   version.Version
}

// DefaultPolicy wraps the 1.8.x line and switches to bit-sets at 1.17.
var DefaultPolicy = Policy{
	WrappedAfter:  version.V1_7_10,
	WrappedBefore: version.V1_9,
	CurrentFrom:   version.V1_17,
}

// TwoWayPolicy returns a policy without a wrapped window, for packets that
// never delegate fields to a nested structure.
func TwoWayPolicy(currentFrom version.Version) Policy {
	return Policy{CurrentFrom: currentFrom}
}

// Resolve classifies v with the default policy.
func Resolve(v version.Version) Variant {
	return DefaultPolicy.Resolve(v)
}

// Resolve classifies v. It is total: every version yields a variant.
func (p Policy) Resolve(v version.Version) Variant {
	if p.CurrentFrom != version.Unknown && v.IsNewerThanOrEquals(p.CurrentFrom) {
		return Current
	}
	if v.IsNewerThan(p.WrappedAfter) && v.IsOlderThan(p.WrappedBefore) {
		return IntermediateWrapped
	}

	return Legacy
}

// HasWrappedWindow reports whether any version resolves to IntermediateWrapped.
func (p Policy) HasWrappedWindow() bool {
	return p.WrappedBefore > p.WrappedAfter+1
}

// Validate checks that the wrapped window ends before the current range starts.
func (p Policy) Validate() error {
	if !p.HasWrappedWindow() || p.CurrentFrom == version.Unknown {
		return nil
	}
	if p.WrappedBefore > p.CurrentFrom {
		return fmt.Errorf("%w: wrapped window (%s, %s) overlaps current range from %s",
			errs.ErrInvalidPolicy, p.WrappedAfter, p.WrappedBefore, p.CurrentFrom)
	}

	return nil
}
