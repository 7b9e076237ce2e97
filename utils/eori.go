package utils

import "regexp"

var (
	ukVATPattern  = regexp.MustCompile(`^\d{9}$`)
	ukEORIPattern = regexp.MustCompile(`^GB\d{12,15}$`)
)

// EoriValidator validates UK VAT and EORI numbers and derives the EORI number
// a VAT-registered UK business is assigned by default.
type EoriValidator struct{}

func NewEoriValidator() *EoriValidator {
	return &EoriValidator{}
}

func (e *EoriValidator) ValidateVAT(vatNumber string) bool {
	return ukVATPattern.MatchString(vatNumber)
}

func (e *EoriValidator) GenerateEORI(vatNumber string) string {
	return "GB" + vatNumber + "000"
}

func (e *EoriValidator) ValidateEORI(eoriNumber string) bool {
	return ukEORIPattern.MatchString(eoriNumber)
}
