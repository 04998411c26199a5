package builtin

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tathagata1/Pipegent/core"
)

func calculator(_ *core.ToolContext, args map[string]any) (any, error) {
	a, err := floatArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := floatArg(args, "b")
	if err != nil {
		return nil, err
	}
	op, err := stringArg(args, "operation")
	if err != nil {
		return nil, err
	}

	switch op {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return nil, errors.New("division by zero")
		}
		return a / b, nil
	}
	return nil, errors.New("invalid operation")
}

var temperatureUnits = map[string]bool{"celsius": true, "fahrenheit": true, "kelvin": true}

func temperatureConverter(_ *core.ToolContext, args map[string]any) (any, error) {
	value, err := floatArg(args, "value")
	if err != nil {
		return nil, err
	}
	from, err := stringArg(args, "from_unit")
	if err != nil {
		return nil, err
	}
	to, err := stringArg(args, "to_unit")
	if err != nil {
		return nil, err
	}

	from, to = strings.ToLower(from), strings.ToLower(to)
	if !temperatureUnits[from] || !temperatureUnits[to] {
		return nil, errors.New("unsupported temperature unit")
	}

	var celsius float64
	switch from {
	case "celsius":
		celsius = value
	case "fahrenheit":
		celsius = (value - 32) * 5 / 9
	case "kelvin":
		celsius = value - 273.15
	}

	var result float64
	switch to {
	case "celsius":
		result = celsius
	case "fahrenheit":
		result = celsius*9/5 + 32
	case "kelvin":
		result = celsius + 273.15
	}

	return math.Round(result*1e4) / 1e4, nil
}

func (b *builtins) randomNumber(_ *core.ToolContext, args map[string]any) (any, error) {
	lo, err := intArgDefault(args, "min_value", 0)
	if err != nil {
		return nil, err
	}
	hi, err := intArgDefault(args, "max_value", 100)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, errors.New("min_value cannot exceed max_value")
	}
	return lo + b.intN(hi-lo+1), nil
}

func (b *builtins) rollDice(_ *core.ToolContext, args map[string]any) (any, error) {
	sides, err := intArgDefault(args, "sides", 6)
	if err != nil {
		return nil, err
	}
	rolls, err := intArgDefault(args, "rolls", 1)
	if err != nil {
		return nil, err
	}
	if sides < 2 {
		return nil, errors.New("sides must be at least 2")
	}
	if rolls < 1 {
		return nil, errors.New("rolls must be at least 1")
	}

	results := make([]string, rolls)
	for i := range results {
		results[i] = strconv.Itoa(1 + b.intN(sides))
	}
	return strings.Join(results, ", "), nil
}

func (b *builtins) coinFlip(_ *core.ToolContext, _ map[string]any) (any, error) {
	if b.intN(2) == 0 {
		return "heads", nil
	}
	return "tails", nil
}
