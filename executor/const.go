package executor

const (
	collNameState = "state"

	sep              = "-"
	prefixOpenLong   = "ol"
	prefixOpenShort  = "os"
	prefixCloseLong  = "cl"
	prefixCloseShort = "cs"

	DefaultMagic     = 20250901
	DefaultDeviation = 10
)
