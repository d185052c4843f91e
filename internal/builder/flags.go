package builder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/client"
)

// OptionSpecs returns one long option per operation parameter, ordered by the
// parameter order the server declares. Boolean parameters take an optional
// value: "--save" alone means true, "--save false" and "--save=false" false.
func OptionSpecs(op client.OperationInfo) []cli.OptionSpec {
	params := make([]client.OperationParam, len(op.Params))
	copy(params, op.Params)
	sort.SliceStable(params, func(i, j int) bool { return params[i].Order < params[j].Order })

	specs := make([]cli.OptionSpec, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" || seen[p.Name] {
			continue
		}
		seen[p.Name] = true

		desc := p.Description
		if len(p.Values) > 0 {
			values := "values: " + strings.Join(p.Values, ", ")
			if desc == "" {
				desc = values
			} else {
				desc += " (" + values + ")"
			}
		}
		spec := cli.OptionSpec{
			Long:        p.Name,
			Description: desc,
			Required:    p.Required,
		}
		if isBoolean(p.Type) {
			spec.Implied = "true"
		}
		specs = append(specs, spec)
	}
	return specs
}

// BuildParams keeps the named arguments matching a declared parameter of op
// and converts them to the parameter type. Required parameters are left to
// the server to check.
func BuildParams(op client.OperationInfo, args *cli.ParsedArgs) (map[string]any, error) {
	params := make(map[string]any)
	for _, p := range op.Params {
		v, ok := args.Named[p.Name]
		if !ok {
			continue
		}
		converted, err := convertParam(p, v)
		if err != nil {
			return nil, err
		}
		params[p.Name] = converted
	}
	return params, nil
}

func convertParam(p client.OperationParam, v any) (any, error) {
	s, isString := v.(string)
	if !isString {
		return v, nil
	}
	switch strings.ToLower(p.Type) {
	case "boolean":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for --%s: want a boolean", s, p.Name)
		}
		return b, nil
	case "integer", "long", "int":
		if s == "" {
			return s, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for --%s: want an integer", s, p.Name)
		}
		return n, nil
	default:
		return s, nil
	}
}

func isBoolean(t string) bool {
	return strings.EqualFold(t, "boolean")
}

func paramType(op client.OperationInfo, name string) string {
	for _, p := range op.Params {
		if p.Name == name && p.Type != "" {
			return p.Type
		}
	}
	return "value"
}
