package simulator

import (
	"fmt"
	"strings"

	"github.com/evolbioinfo/alisim/alphabet"
	"github.com/evolbioinfo/alisim/config"
	"github.com/evolbioinfo/alisim/modeladapter"
)

// buildAdapter parses cfg.ModelSpec the way snag.go's -model/-parameters
// pair does, plus the "+ASC" suffix IQ-TREE's own model strings use to
// request ascertainment-bias correction.
func buildAdapter(cfg *config.Config, alph *alphabet.Ctx) (*modeladapter.Adapter, bool, error) {
	spec := cfg.ModelSpec
	ascertainment := false
	if idx := strings.Index(strings.ToUpper(spec), "+ASC"); idx >= 0 {
		ascertainment = true
		spec = spec[:idx]
	}
	name := strings.ToLower(strings.TrimSpace(spec))
	if name == "" {
		name = "jc"
	}

	var a *modeladapter.Adapter
	var err error
	switch name {
	case "jc":
		a, err = modeladapter.NewDNA(modeladapter.JC, nil)
	case "k2p":
		a, err = modeladapter.NewDNA(modeladapter.K2P, cfg.ModelParam)
	case "f81":
		a, err = modeladapter.NewDNA(modeladapter.F81, cfg.ModelParam)
	case "gtr":
		a, err = modeladapter.NewDNA(modeladapter.GTR, cfg.ModelParam)
	case "jtt":
		a, err = modeladapter.NewProtein(modeladapter.JTT, cfg.GammaCategories > 1, cfg.GammaAlpha)
	case "wag":
		a, err = modeladapter.NewProtein(modeladapter.WAG, cfg.GammaCategories > 1, cfg.GammaAlpha)
	case "lg":
		a, err = modeladapter.NewProtein(modeladapter.LG, cfg.GammaCategories > 1, cfg.GammaAlpha)
	case "hivb":
		a, err = modeladapter.NewProtein(modeladapter.HIVB, cfg.GammaCategories > 1, cfg.GammaAlpha)
	case "codon":
		a, err = buildCodonAdapter(cfg, alph)
	case "equal":
		a, err = modeladapter.NewEqualRates(alph.NumStates(), uniformFreq(alph.NumStates(), cfg.ModelParam))
	default:
		return nil, false, fmt.Errorf("simulator: unknown model_spec %q", cfg.ModelSpec)
	}
	if err != nil {
		return nil, false, fmt.Errorf("simulator: building model %q: %w", name, err)
	}
	a.SetAscertainment(ascertainment)
	return a, ascertainment, nil
}

func buildCodonAdapter(cfg *config.Config, alph *alphabet.Ctx) (*modeladapter.Adapter, error) {
	if alph.Kind() != alphabet.CODON {
		return nil, fmt.Errorf("codon model requires alphabet_kind=CODON")
	}
	kappa, omega := 1.0, 1.0
	if len(cfg.ModelParam) >= 1 {
		kappa = cfg.ModelParam[0]
	}
	if len(cfg.ModelParam) >= 2 {
		omega = cfg.ModelParam[1]
	}
	freq := uniformFreq(alph.NumStates(), nil)
	if len(cfg.ModelParam) >= 2+alph.NumStates() {
		freq = cfg.ModelParam[2 : 2+alph.NumStates()]
	}
	return modeladapter.NewCodon(alph.NumStates(), alph.Codons(), freq, kappa, omega)
}

func uniformFreq(s int, override []float64) []float64 {
	if len(override) == s {
		return override
	}
	freq := make([]float64, s)
	for i := range freq {
		freq[i] = 1 / float64(s)
	}
	return freq
}
