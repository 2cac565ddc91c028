// Package validator validates request structs with go-playground/validator.
//
// Besides the stock tags it registers "password" (8-72 characters) and
// "otpcode" (six ASCII digits, surrounding whitespace ignored). Failures are
// returned as V10ValidationError keyed by the json field name.
package validator
