package bridge

const DefaultHost = "http://127.0.0.1:8787"

const (
	GET  = "GET"
	POST = "POST"
)

const (
	pathLogin     = "/login"
	pathSymbol    = "/symbol/"
	pathTick      = "/tick/"
	pathRates     = "/rates"
	pathPositions = "/positions"
	pathOrder     = "/order"
)

// MetaTrader 5 trade request values
const (
	actionDeal = 1

	orderTypeBuy  = 0
	orderTypeSell = 1

	fillingFOK    = 0
	fillingIOC    = 1
	fillingReturn = 2

	timeGTC = 0
)
