package model

// RawTradeRecord Bitquery EAP返回的原始嵌套交易记录。
// 任意层级的key都可能缺失，数值字段可能是字符串、数字或null，
// 因此数值统一用interface{}承接，由normalizer做强转。
type RawTradeRecord struct {
	Trade       RawTrade       `json:"Trade"`
	Block       RawBlock       `json:"Block"`
	Transaction RawTransaction `json:"Transaction"`
}

type RawTrade struct {
	Dex  RawDex       `json:"Dex"`
	Buy  RawTradeSide `json:"Buy"`
	Sell RawTradeSide `json:"Sell"`
}

type RawDex struct {
	ProtocolName   string `json:"ProtocolName"`
	ProtocolFamily string `json:"ProtocolFamily"`
}

type RawTradeSide struct {
	Account     RawAccount  `json:"Account"`
	Amount      interface{} `json:"Amount"`
	AmountInUSD interface{} `json:"AmountInUSD"`
	Currency    RawCurrency `json:"Currency"`
	PriceInUSD  interface{} `json:"PriceInUSD"`
}

type RawAccount struct {
	Address string `json:"Address"`
}

type RawCurrency struct {
	Symbol      string `json:"Symbol"`
	Name        string `json:"Name"`
	MintAddress string `json:"MintAddress"`
}

type RawBlock struct {
	Time   string `json:"Time"`
	Height uint64 `json:"Height"`
}

type RawTransaction struct {
	Signature string `json:"Signature"`
	FeePayer  string `json:"FeePayer"`
}
