package processor

// OutputFmt specifies format of the conversion output.
type OutputFmt int

// Supported output formats.
const (
	UnsupportedOutputFmt OutputFmt = iota
	OEpub
	OXhtml
)

// ParseFmtString converts command line string to the supported output format.
func ParseFmtString(format string) OutputFmt {
	switch format {
	case "epub":
		return OEpub
	case "xhtml":
		return OXhtml
	default:
		return UnsupportedOutputFmt
	}
}

func (fmt OutputFmt) String() string {
	switch fmt {
	case OEpub:
		return "epub"
	case OXhtml:
		return "xhtml"
	default:
		return "unsupported"
	}
}
