package types

// SymbolMeta carries per-symbol exchange metadata.
type SymbolMeta struct {
	Symbol      string
	LotSize     int64
	IsETF       bool
	DisplayName string
}

// DefaultLotSize is the HKEX board-lot fallback when a symbol has no
// override.
const DefaultLotSize int64 = 100

// symbolOverrides lists the known board-lot and ETF deviations. Anything
// not present trades in lots of 100 and is not an ETF.
var symbolOverrides = map[string]SymbolMeta{
	"00005.HK": {Symbol: "00005.HK", LotSize: 400, DisplayName: "HSBC Holdings"},
	"00939.HK": {Symbol: "00939.HK", LotSize: 1000, DisplayName: "CCB"},
	"01299.HK": {Symbol: "01299.HK", LotSize: 500, DisplayName: "AIA"},
	"02800.HK": {Symbol: "02800.HK", LotSize: 500, IsETF: true, DisplayName: "Tracker Fund of Hong Kong"},
	"03033.HK": {Symbol: "03033.HK", LotSize: 100, IsETF: true, DisplayName: "CSOP Hang Seng TECH ETF"},
	"02822.HK": {Symbol: "02822.HK", LotSize: 100, IsETF: true, DisplayName: "CSOP FTSE China A50 ETF"},
	"02828.HK": {Symbol: "02828.HK", LotSize: 100, IsETF: true, DisplayName: "Hang Seng H-Share ETF"},
	"03067.HK": {Symbol: "03067.HK", LotSize: 100, IsETF: true, DisplayName: "iShares Hang Seng TECH ETF"},
	"03188.HK": {Symbol: "03188.HK", LotSize: 100, IsETF: true, DisplayName: "ChinaAMC CSI 300 ETF"},
}

// LookupSymbolMeta returns the metadata for symbol, falling back to the
// exchange defaults for unknown symbols.
func LookupSymbolMeta(symbol string) SymbolMeta {
	if meta, ok := symbolOverrides[symbol]; ok {
		return meta
	}
	return SymbolMeta{Symbol: symbol, LotSize: DefaultLotSize}
}
