package goutil

import "strconv"

func Uint64Str(ui uint64) string {
	return strconv.FormatUint(ui, 10)
}

func ContainsStr(arr []string, str string) bool {
	for _, v := range arr {
		if v == str {
			return true
		}
	}
	return false
}

func ContainsUint32(arr []uint32, i uint32) bool {
	for _, v := range arr {
		if v == i {
			return true
		}
	}
	return false
}
