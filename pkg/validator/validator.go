package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

type Validator interface {
	Validate(value interface{}) error
}

type StringFunc func(string) error

var (
	ErrRequired = errors.New("value is required")
)

// Form validates the fields of a request struct. Keys are either the field's
// json/schema tag or, for embedded values, the Go field name.
type Form struct {
	validators map[string]Validator
}

func MustForm(validators map[string]Validator) *Form {
	for key, v := range validators {
		if v == nil {
			panic(fmt.Sprintf("nil validator for field %s", key))
		}
	}
	return &Form{validators: validators}
}

func (f *Form) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ErrRequired
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.New("expect struct")
	}

	for key, v := range f.validators {
		fv, ok := fieldByKey(rv, key)
		if !ok {
			return fmt.Errorf("unknown field %s", key)
		}
		if err := v.Validate(fv.Interface()); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	return nil
}

func fieldByKey(rv reflect.Value, key string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if ft.Name == key {
			return rv.Field(i), true
		}
		for _, tagName := range []string{"json", "schema"} {
			tag := ft.Tag.Get(tagName)
			if tag == "" {
				continue
			}
			if strings.SplitN(tag, ",", 2)[0] == key {
				return rv.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}

type String struct {
	Optional   bool
	MinLen     uint32
	MaxLen     uint32
	Regex      *regexp.Regexp
	Validators []StringFunc
}

func (v *String) Validate(value interface{}) error {
	s, ok := value.(*string)
	if !ok {
		if ss, isStr := value.(string); isStr {
			s = &ss
		} else {
			return errors.New("expect string")
		}
	}

	if s == nil {
		if v.Optional {
			return nil
		}
		return ErrRequired
	}

	if v.MinLen > 0 && uint32(len(*s)) < v.MinLen {
		return fmt.Errorf("length must be at least %d", v.MinLen)
	}

	if v.MaxLen > 0 && uint32(len(*s)) > v.MaxLen {
		return fmt.Errorf("length must be at most %d", v.MaxLen)
	}

	if v.Regex != nil && !v.Regex.MatchString(*s) {
		return errors.New("invalid format")
	}

	for _, fn := range v.Validators {
		if err := fn(*s); err != nil {
			return err
		}
	}

	return nil
}

type UInt64 struct {
	Optional bool
	Min      *uint64
	Max      *uint64
}

func (v *UInt64) Validate(value interface{}) error {
	ui, ok := value.(*uint64)
	if !ok {
		return errors.New("expect uint64")
	}

	if ui == nil {
		if v.Optional {
			return nil
		}
		return ErrRequired
	}

	if v.Min != nil && *ui < *v.Min {
		return fmt.Errorf("must be at least %d", *v.Min)
	}

	if v.Max != nil && *ui > *v.Max {
		return fmt.Errorf("must be at most %d", *v.Max)
	}

	return nil
}

type UInt32 struct {
	Optional bool
}

func (v *UInt32) Validate(value interface{}) error {
	ui, ok := value.(*uint32)
	if !ok {
		return errors.New("expect uint32")
	}

	if ui == nil && !v.Optional {
		return ErrRequired
	}

	return nil
}

type Bool struct {
	Optional bool
}

func (v *Bool) Validate(value interface{}) error {
	b, ok := value.(*bool)
	if !ok {
		return errors.New("expect bool")
	}

	if b == nil && !v.Optional {
		return ErrRequired
	}

	return nil
}

type Slice struct {
	Optional  bool
	MinLen    uint32
	MaxLen    uint32
	Validator Validator
}

func (v *Slice) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return errors.New("expect slice")
	}

	if rv.IsNil() || rv.Len() == 0 {
		if v.Optional && v.MinLen == 0 {
			return nil
		}
	}

	if uint32(rv.Len()) < v.MinLen {
		return fmt.Errorf("length must be at least %d", v.MinLen)
	}

	if v.MaxLen > 0 && uint32(rv.Len()) > v.MaxLen {
		return fmt.Errorf("length must be at most %d", v.MaxLen)
	}

	if v.Validator != nil {
		for i := 0; i < rv.Len(); i++ {
			if err := v.Validator.Validate(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	}

	return nil
}
