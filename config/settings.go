package config

import (
	"errors"
	"fmt"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/go-playground/validator/v10"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NetworkSettings is the merged network configuration: context first, then
// environment overrides.
type NetworkSettings struct {
	Name string `validate:"required,max=64"`
	// Stage tags every resource of the stack. Empty means PROD.
	Stage           DeploymentStageType `validate:"omitempty,oneof=DEV PROD"`
	Ipv4MaskBits    int                 `validate:"omitempty,min=20,max=24"`
	Ipv6Block       string              `validate:"omitempty,cidrv6"`
	Ipv6PoolId      string              `validate:"required_with=Ipv6Block"`
	IncludeJumphost bool
}

// LoadNetworkSettings reads the network settings of scope and validates them.
func LoadNetworkSettings(scope constructs.Construct) (NetworkSettings, error) {
	maskBits, err := Ipv4MaskBits(scope)
	if err != nil {
		return NetworkSettings{}, &addressplan.ConfigurationError{Field: ContextIpv4MaskBits, Value: scope.Node().TryGetContext(jsii.String(ContextIpv4MaskBits)), Reason: err.Error()}
	}
	jumphost, err := IncludeJumphost(scope)
	if err != nil {
		return NetworkSettings{}, &addressplan.ConfigurationError{Field: ContextIncludeJumphost, Value: scope.Node().TryGetContext(jsii.String(ContextIncludeJumphost)), Reason: err.Error()}
	}
	s := NetworkSettings{
		Name:            VpcName(scope),
		Stage:           GetStage(scope),
		Ipv4MaskBits:    maskBits,
		Ipv6Block:       Ipv6Block(scope),
		Ipv6PoolId:      Ipv6PoolId(scope),
		IncludeJumphost: jumphost,
	}
	s = s.WithOverrides(GetEnvironmentVariables[NetworkEnvironmentVariables](scope))
	if err := s.Validate(); err != nil {
		return NetworkSettings{}, err
	}
	return s, nil
}

// WithOverrides applies the non-empty environment values on top of s.
func (s NetworkSettings) WithOverrides(vars NetworkEnvironmentVariables) NetworkSettings {
	if vars.Ipv4MaskBits != 0 {
		s.Ipv4MaskBits = vars.Ipv4MaskBits
	}
	if vars.Ipv6Block != "" {
		s.Ipv6Block = vars.Ipv6Block
	}
	if vars.Ipv6PoolId != "" {
		s.Ipv6PoolId = vars.Ipv6PoolId
	}
	return s
}

// Validate reports the first invalid field as an addressplan.ConfigurationError.
func (s NetworkSettings) Validate() error {
	return ValidateStruct(s)
}

// ValidateStruct runs the validate tags of v and converts the first failure into
// an addressplan.ConfigurationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &addressplan.ConfigurationError{
			Field:  fe.Namespace(),
			Value:  fe.Value(),
			Reason: describeTag(fe),
		}
	}
	return fmt.Errorf("validating %T: %w", v, err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required together with " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "cidrv6":
		return "must be an IPv6 CIDR block"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// AddressSpace turns the settings into a validated planner address space.
func (s NetworkSettings) AddressSpace() (addressplan.AddressSpace, error) {
	ipv6, err := addressplan.ParseIpv6Base(s.Ipv6Block)
	if err != nil {
		return addressplan.AddressSpace{}, err
	}
	return addressplan.NewAddressSpace(s.Ipv4MaskBits, ipv6)
}
