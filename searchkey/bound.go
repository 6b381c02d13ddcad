package searchkey

// BoundKind identifies whether a range Bound is unbounded, inclusive, or
// exclusive of its Key.
type BoundKind uint8

const (
	// Unbounded means the bound places no restriction on that side of the range.
	Unbounded BoundKind = iota
	// Included means the range includes entries equal to the bound's Key.
	Included
	// Excluded means the range excludes entries equal to the bound's Key.
	Excluded
)

// Bound is one endpoint of a range query over a sorted map's SearchKeys.
type Bound struct {
	Kind BoundKind
	Key  SearchKey
}

// NoBound returns an unbounded endpoint.
func NoBound() Bound { return Bound{Kind: Unbounded} }

// IncludeKey returns an endpoint that includes entries equal to sk.
func IncludeKey(sk SearchKey) Bound { return Bound{Kind: Included, Key: sk} }

// ExcludeKey returns an endpoint that excludes entries equal to sk.
func ExcludeKey(sk SearchKey) Bound { return Bound{Kind: Excluded, Key: sk} }

// satisfiesLower reports whether sk passes this bound used as a range's lower endpoint.
func (b Bound) satisfiesLower(sk SearchKey) bool {
	switch b.Kind {
	case Unbounded:
		return true
	case Included:
		return Compare(sk, b.Key) >= 0
	case Excluded:
		return Compare(sk, b.Key) > 0
	default:
		return false
	}
}

// satisfiesUpper reports whether sk passes this bound used as a range's upper endpoint.
func (b Bound) satisfiesUpper(sk SearchKey) bool {
	switch b.Kind {
	case Unbounded:
		return true
	case Included:
		return Compare(sk, b.Key) <= 0
	case Excluded:
		return Compare(sk, b.Key) < 0
	default:
		return false
	}
}

// InRange reports whether sk satisfies both endpoints lo and hi, each
// according to its own BoundKind.
func InRange(sk SearchKey, lo, hi Bound) bool {
	return lo.satisfiesLower(sk) && hi.satisfiesUpper(sk)
}
