package load

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pdnfake/types"
)

// ParseNodeName 解析节点名称,格式为 n<net>_m<layer>_<x>_<y>。
// 依次提取连续的数字串,第一个为网络编号被丢弃,后三个为层号和坐标,
// 不完整的名称对应的坐标保持为零。
func ParseNodeName(name string) (coords types.Coords) {
	if name == types.GroundName {
		return coords
	}
	slots := [3]*uint32{&coords.Layer, &coords.X, &coords.Y}
	index := 0
	for i := 0; i < len(name); {
		if !isDigit(name[i]) {
			i++
			continue
		}
		j := i
		for j < len(name) && isDigit(name[j]) {
			j++
		}
		if index > 0 && index <= len(slots) {
			*slots[index-1] = parseDigits(name[i:j])
		}
		index++
		i = j
	}
	return coords
}

// parseDigits 解析数字串,溢出时取最大值
func parseDigits(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return math.MaxUint32
	}
	return uint32(v)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// unitMap SPICE 数值单位,按小写前缀匹配,meg 和 mil 需先于 m 判断
var unitMap = []struct {
	prefix string
	scale  float64
}{
	{"meg", 1e6},
	{"mil", 25.4e-6},
	{"t", 1e12},
	{"g", 1e9},
	{"k", 1e3},
	{"m", 1e-3},
	{"u", 1e-6},
	{"n", 1e-9},
	{"p", 1e-12},
	{"f", 1e-15},
}

// numberLength 数值部分的长度,没有数字时为 0
func numberLength(s string) int {
	i, digits := 0, 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// ParseValue 解析元件值。
// 与 SPICE 相同,数值后可以跟单位后缀(不区分大小写,M 为毫),
// 后缀之后的字母作为单位名称忽略,如 10mA、1.2V。
func ParseValue(s string) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	n := numberLength(s)
	if n == 0 {
		return 0, fmt.Errorf("无效的数值 '%s'", s)
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, fmt.Errorf("无效的数值 '%s'", s)
	}
	suffix := s[n:]
	for i := 0; i < len(suffix); i++ {
		if !isLetter(suffix[i]) {
			return 0, fmt.Errorf("无效的数值 '%s'", s)
		}
	}
	suffix = strings.ToLower(suffix)
	for _, unit := range unitMap {
		if strings.HasPrefix(suffix, unit.prefix) {
			return v * unit.scale, nil
		}
	}
	return v, nil
}
