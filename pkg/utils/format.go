package utils

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

func ConvertToJsonString(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// ConvertToPercentage 将0-1的比例格式化为百分比字符串
func ConvertToPercentage(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// GetDisplayWalletAddress 获取用于显示的钱包地址缩写
func GetDisplayWalletAddress(walletAddress string) string {
	if len(walletAddress) > 9 {
		return fmt.Sprintf("%s...%s", walletAddress[:6], walletAddress[len(walletAddress)-4:])
	}
	return walletAddress
}

// FormatVolume 格式化交易量展示，大数用k/M缩写
func FormatVolume(volume decimal.Decimal) string {
	million := decimal.NewFromInt(1_000_000)
	thousand := decimal.NewFromInt(1_000)

	switch {
	case volume.GreaterThanOrEqual(million):
		return volume.Div(million).Truncate(2).String() + "M"
	case volume.GreaterThanOrEqual(thousand):
		return volume.Div(thousand).Truncate(2).String() + "k"
	default:
		return volume.Truncate(4).String()
	}
}
