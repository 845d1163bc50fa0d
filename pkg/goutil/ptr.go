package goutil

import (
	"reflect"
)

func String(s string) *string {
	return &s
}

func Uint32(ui uint32) *uint32 {
	return &ui
}

func Uint64(ui uint64) *uint64 {
	return &ui
}

func Int64(i int64) *int64 {
	return &i
}

func Bool(b bool) *bool {
	return &b
}

func GetUint64(ui *uint64) uint64 {
	if ui != nil {
		return *ui
	}
	return 0
}

func GetBool(b *bool) bool {
	if b != nil {
		return *b
	}
	return false
}

func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Array, reflect.Chan, reflect.Slice:
		return reflect.ValueOf(i).IsNil()
	default:
		return false
	}
}
