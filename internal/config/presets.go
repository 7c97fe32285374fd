package config

import "sort"

var Presets = map[string]map[string]*Config{
	"vdp": {
		"mild": {
			Equation: "vdp", Metric: "indicator", Dt: 1e-2, TStop: 10,
			Params: []float64{1}, InitState: []float64{2, 0},
		},
		"stiff": {
			Equation: "vdp", Metric: "index", Dt: 1e-3, TStop: 1,
			Params: []float64{1000}, InitState: []float64{2, 0},
		},
	},
	"autoignition": {
		"scheduler": {
			Equation: "autoignition", Metric: "indicator", Dt: 1e-6, TStop: 0.2,
			Params: []float64{101325}, InitState: []float64{1000, 0.05, 0.22, 0},
			MonitorThreshold: 1e4,
		},
		"hot": {
			Equation: "autoignition", Metric: "cema", Dt: 1e-6, TStop: 0.01,
			Params: []float64{2 * 101325}, InitState: []float64{1200, 0.05, 0.22, 0},
			MonitorThreshold: 2500,
		},
	},
	"csp_test": {
		"default": {
			Equation: "csp_test", Metric: "ratio", Dt: 1e-3, TStop: 1,
			Params: []float64{1e-2}, InitState: []float64{1, 1, 1, 1},
		},
	},
}

// GetPreset returns the named preset laid over DefaultConfig, or nil.
func GetPreset(equation, preset string) *Config {
	eqPresets, ok := Presets[equation]
	if !ok {
		return nil
	}
	p, ok := eqPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Equation = p.Equation
	cfg.Metric = p.Metric
	cfg.Dt = p.Dt
	cfg.TStop = p.TStop
	cfg.Params = append([]float64(nil), p.Params...)
	cfg.InitState = append([]float64(nil), p.InitState...)
	if p.MonitorThreshold != 0 {
		cfg.MonitorThreshold = p.MonitorThreshold
	}
	return cfg
}

func ListPresets(equation string) []string {
	eqPresets, ok := Presets[equation]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(eqPresets))
	for name := range eqPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
