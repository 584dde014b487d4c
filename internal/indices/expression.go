package indices

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"

	"github.com/forest-guardian/salinity-indices/internal/raster"
)

// Expression is a user-defined index written as an arithmetic expression,
// for example "(N - R) / (N + R + L)". Vars binds expression variables to
// band names and Params binds them to constants.
type Expression struct {
	Name    string             `yaml:"name" json:"name"`
	Expr    string             `yaml:"expr" json:"expr"`
	Vars    map[string]string  `yaml:"vars" json:"vars"`
	Params  map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Display DisplayRange       `yaml:"display" json:"display"`
}

func arity(name string, n int, args []interface{}) error {
	if len(args) != n {
		return fmt.Errorf("indices: got %d arguments for function '%s', but needs %d", len(args), name, n)
	}
	for _, a := range args {
		if _, ok := a.(float64); !ok {
			return fmt.Errorf("indices: function '%s' needs numeric arguments", name)
		}
	}
	return nil
}

var expressionFuncs = map[string]govaluate.ExpressionFunction{
	"sqrt": func(args ...interface{}) (interface{}, error) {
		if err := arity("sqrt", 1, args); err != nil {
			return nil, err
		}
		return sqrt(args[0].(float64)), nil
	},
	"abs": func(args ...interface{}) (interface{}, error) {
		if err := arity("abs", 1, args); err != nil {
			return nil, err
		}
		return math.Abs(args[0].(float64)), nil
	},
	"pow": func(args ...interface{}) (interface{}, error) {
		if err := arity("pow", 2, args); err != nil {
			return nil, err
		}
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	},
	"log": func(args ...interface{}) (interface{}, error) {
		if err := arity("log", 1, args); err != nil {
			return nil, err
		}
		v := args[0].(float64)
		if v <= 0 {
			return math.NaN(), nil
		}
		return math.Log(v), nil
	},
}

// Compile parses the expression and checks every variable it uses is bound.
func (x Expression) Compile() (*govaluate.EvaluableExpression, error) {
	op := "indices.Expression(" + x.Name + ")"
	if x.Name == "" {
		return nil, raster.Configf(op, "expression has no name")
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(x.Expr, expressionFuncs)
	if err != nil {
		return nil, raster.Configf(op, "parse %q: %v", x.Expr, err)
	}
	var unbound []string
	for _, v := range expr.Vars() {
		_, isBand := x.Vars[v]
		_, isParam := x.Params[v]
		if !isBand && !isParam {
			unbound = append(unbound, v)
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		return nil, raster.Configf(op, "unbound variables %v", unbound)
	}
	return expr, nil
}

// Evaluate computes the expression at every pixel of r. No-data in any bound
// band, division by zero and non-finite results produce no-data.
func (x Expression) Evaluate(r *raster.Raster) (IndexResult, error) {
	expr, err := x.Compile()
	if err != nil {
		return IndexResult{}, err
	}

	vars := make([]string, 0, len(x.Vars))
	for v := range x.Vars {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	bands := make([]raster.Band, len(vars))
	for i, v := range vars {
		b, err := r.Band(x.Vars[v])
		if err != nil {
			return IndexResult{}, fmt.Errorf("indices: expression %s: %w", x.Name, err)
		}
		bands[i] = b
	}
	grid, err := raster.SameGrid("indices.Expression("+x.Name+")", bands...)
	if err != nil {
		return IndexResult{}, err
	}

	out := make([]float64, grid.Size())
	err = raster.ForEachRow(grid, func(y int) error {
		params := make(map[string]interface{}, len(vars)+len(x.Params))
		for k, v := range x.Params {
			params[k] = v
		}
		start := y * grid.Width
	pixels:
		for k := start; k < start+grid.Width; k++ {
			for i, v := range vars {
				val := bands[i].Value(k)
				if math.IsNaN(val) {
					out[k] = math.NaN()
					continue pixels
				}
				params[v] = val
			}
			res, err := expr.Evaluate(params)
			if err != nil {
				return fmt.Errorf("indices: expression %s at pixel %d: %v", x.Name, k, err)
			}
			f, ok := res.(float64)
			if !ok {
				return raster.Configf("indices.Expression("+x.Name+")", "expression yields %T, not a number", res)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				f = math.NaN()
			}
			out[k] = f
		}
		return nil
	})
	if err != nil {
		return IndexResult{}, err
	}

	band, err := raster.Wrap(grid, []string{x.Name}, [][]float64{out})
	if err != nil {
		return IndexResult{}, err
	}
	return IndexResult{Name: x.Name, Formula: x.Expr, Band: band.BandAt(0), Display: x.Display}, nil
}
