package service

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// 非负定点金额，最多两位小数
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// parseMoney 解析金额字符串；格式不合法返回 false
func parseMoney(s string) (decimal.Decimal, bool) {
	if !moneyPattern.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parsePositiveMoney 同 parseMoney，且要求大于零
func parsePositiveMoney(s string) (decimal.Decimal, bool) {
	d, ok := parseMoney(s)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
