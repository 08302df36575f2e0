package app

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/config"
)

// builtinNetworks are the networks the backend monitors out of the box.
var builtinNetworks = []string{"ethereum", "base", "base-sepolia"}

// contractValidator checks add-contract input before it reaches the dashboard.
type contractValidator struct {
	validate *validator.Validate
	networks map[string]struct{}
}

func newContractValidator(cfg *config.Config) *contractValidator {
	networks := make(map[string]struct{}, len(builtinNetworks))
	for _, n := range builtinNetworks {
		networks[n] = struct{}{}
	}
	for n := range cfg.Chain.RPCURLs {
		if cfg.RPCURL(n) != "" {
			networks[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
		}
	}

	cv := &contractValidator{validate: validator.New(), networks: networks}
	cv.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = cv.validate.RegisterValidation("network", cv.validNetwork)
	return cv
}

func (cv *contractValidator) validNetwork(fl validator.FieldLevel) bool {
	_, ok := cv.networks[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
	return ok
}

// Check normalises and validates in, returning one message per failed field.
func (cv *contractValidator) Check(in *backend.NewContract) error {
	in.ContractAddress = strings.TrimSpace(in.ContractAddress)
	in.Network = strings.ToLower(strings.TrimSpace(in.Network))
	in.EmergencyFunction = strings.TrimSpace(in.EmergencyFunction)
	emails := in.Emails[:0]
	for _, e := range in.Emails {
		if e = strings.TrimSpace(e); e != "" {
			emails = append(emails, e)
		}
	}
	in.Emails = emails

	var problems []string
	if err := cv.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, cv.describe(fe))
		}
	}
	if err := cv.validate.Var(in.Network, "network"); in.Network != "" && err != nil {
		problems = append(problems, fmt.Sprintf("network %q is not supported (known: %s)", in.Network, strings.Join(cv.known(), ", ")))
	}
	if in.ContractAddress != "" && !common.IsHexAddress(in.ContractAddress) {
		problems = append(problems, "contractAddress must be a 0x-prefixed 20-byte hex address")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid contract: %s", strings.Join(dedupe(problems), "; "))
}

func (cv *contractValidator) describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " needs at least " + fe.Param() + " entry"
	case "email":
		return fmt.Sprintf("%q is not a valid email", fe.Value())
	case "eth_addr":
		return "contractAddress must be a 0x-prefixed 20-byte hex address"
	case "url":
		return fe.Field() + " must be a URL"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}

func (cv *contractValidator) known() []string {
	out := make([]string, 0, len(cv.networks))
	for n := range cv.networks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
