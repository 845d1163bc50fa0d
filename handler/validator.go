package handler

import (
	"crm/pkg/goutil"
	"crm/pkg/validator"
)

func IDValidator(optional bool) validator.Validator {
	return &validator.UInt64{
		Optional: optional,
		Min:      goutil.Uint64(1),
	}
}
