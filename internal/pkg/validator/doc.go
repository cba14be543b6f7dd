// Package validator validates request structs through struct tags.
//
// Business code depends on the Validator interface. The go-playground v10
// implementation reports failures as ValidationError, keyed by the JSON name
// of each field, carrying both the failed rule and a translated message.
package validator
