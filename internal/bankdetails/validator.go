package bankdetails

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	tagIBAN  = "mk_iban"
	tagSWIFT = "swift_bic"
)

// Input is a payout bank profile as submitted by an affiliate
type Input struct {
	BankName          string `json:"bank_name" validate:"required,max=100"`
	AccountNumber     string `json:"account_number" validate:"required"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=100"`
	IBAN              string `json:"iban" validate:"omitempty,mk_iban"`
	Swift             string `json:"swift" validate:"omitempty,swift_bic"`
	BankAddress       string `json:"bank_address" validate:"max=255"`
}

// Normalized returns a copy with every field trimmed and canonicalised
func (in Input) Normalized() Input {
	return Input{
		BankName:          strings.TrimSpace(in.BankName),
		AccountNumber:     NormalizeAccountNumber(in.AccountNumber),
		AccountHolderName: strings.TrimSpace(in.AccountHolderName),
		IBAN:              NormalizeIBAN(in.IBAN),
		Swift:             NormalizeSWIFT(in.Swift),
		BankAddress:       strings.TrimSpace(in.BankAddress),
	}
}

// Validator runs the bank-detail rules through go-playground/validator
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	RegisterValidations(v)
	v.RegisterStructValidation(accountNumberStructLevel, Input{})
	return &Validator{validate: v}
}

// RegisterValidations adds the mk_iban and swift_bic tags to v so request
// structs elsewhere can reuse them
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation(tagIBAN, func(fl validator.FieldLevel) bool {
		return ValidateIBAN(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation(tagSWIFT, func(fl validator.FieldLevel) bool {
		return ValidateSWIFT(fl.Field().String()) == nil
	})
}

// accountNumberStructLevel needs BankName, so it cannot be a field tag
func accountNumberStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if strings.TrimSpace(in.AccountNumber) == "" {
		return // reported by the required tag
	}
	if v := ValidateAccountNumber(in.BankName, in.AccountNumber); v != nil {
		sl.ReportError(in.AccountNumber, "account_number", "AccountNumber", v.Rule, v.Message)
	}
}

// Validate returns every violated rule, or nil when in is acceptable
func (v *Validator) Validate(in Input) []Violation {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "input", Rule: RuleFormat, Message: err.Error()}}
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toViolation(in, fe))
	}
	return out
}

// toViolation reuses the rule's own message where one exists
func toViolation(in Input, fe validator.FieldError) Violation {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return Violation{Field: field, Rule: RuleRequired, Message: fmt.Sprintf("%s is required", field)}
	case "max":
		return Violation{Field: field, Rule: RuleMaxLength, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case tagIBAN:
		if v := ValidateIBAN(in.IBAN); v != nil {
			return *v
		}
	case tagSWIFT:
		if v := ValidateSWIFT(in.Swift); v != nil {
			return *v
		}
	}
	if v := ValidateAccountNumber(in.BankName, in.AccountNumber); field == "account_number" && v != nil {
		return *v
	}
	return Violation{Field: field, Rule: fe.Tag(), Message: fmt.Sprintf("%s is invalid", field)}
}
