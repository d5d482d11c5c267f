package classroom

// palette mirrors the dashboard card colors; order matters for DeriveColor.
var palette = []string{
	"rgba(25, 118, 210)",
	"rgba(66, 66, 66)",
	"rgba(0, 121, 107)",
	"rgba(255, 112, 67)",
	"rgba(21, 101, 192)",
	"rgba(56, 142, 60)",
	"rgba(0, 105, 92)",
	"rgba(93, 64, 55)",
	"rgba(0, 137, 123)",
	"rgba(69, 90, 100)",
	"rgba(46, 125, 50)",
	"rgba(63, 81, 181)",
}

// DeriveColor deterministically maps a classroom to a palette entry so that
// the same (name, id) pair always renders with the same color. The hash is
// the classic 31-multiplier string hash over the name, falling back to the
// id when the name is empty; arithmetic wraps at 32 bits.
func DeriveColor(name, id string) string {
	seed := name
	if seed == "" {
		seed = id
	}
	var hash int32
	for _, r := range seed {
		hash = int32(r) + ((hash << 5) - hash)
	}
	// reinterpret as unsigned; negating MinInt32 would wrap negative again
	return palette[int(uint32(hash))%len(palette)]
}
