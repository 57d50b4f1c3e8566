package extractor

// LinkSelectors are the elements whose href attribute is a navigable link.
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var LinkSelectors = []string{
	"a[href]",
	"area[href]",
}

const baseSelector = "base[href]"
