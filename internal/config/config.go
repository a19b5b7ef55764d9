// Package config implements the hierarchical configuration document
// (spec §6) and its YAML loader, the collaborator a CLI entry-point
// (out of scope) parses before constructing a scheme from the
// registry. Grounded on spec §6's recognized-keys table; no teacher
// file loads YAML directly, so this follows the module graph's own
// choice of gopkg.in/yaml.v3 (see SPEC_FULL.md, AMBIENT STACK).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Network holds the transport-facing configuration.
type Network struct {
	Address     string `yaml:"address"`
	RemotePort  uint16 `yaml:"remote_port"`
	LocalPort   uint16 `yaml:"local_port"`
	TimeoutSecs uint32 `yaml:"timeout"`
	Scheme      int    `yaml:"scheme"`
}

// Common holds role and scheme-selection configuration shared across
// every scheme.
type Common struct {
	IDsNum            uint64 `yaml:"ids_num"`
	IsSender          bool   `yaml:"is_sender"`
	Verbose           bool   `yaml:"verbose"`
	MemoryPSIScheme   string `yaml:"memory_psi_scheme"` // "psi", "pjc", or "pir"
	PSIScheme         string `yaml:"psi_scheme"`
	PJCScheme         string `yaml:"pjc_scheme"`
}

// Data holds the CSV collaborator's file paths (out of scope, carried
// only so a full configuration document round-trips).
type Data struct {
	InputFile  string `yaml:"input_file"`
	HasHeader  bool   `yaml:"has_header"`
	OutputFile string `yaml:"output_file"`
}

// ECDHParams holds ECDH-PSI's scheme parameters.
type ECDHParams struct {
	CurveID      int  `yaml:"curve_id"`
	ObtainResult bool `yaml:"obtain_result"`
}

// KKRTPSIParams holds KKRT-PSI's scheme parameters.
type KKRTPSIParams struct {
	Epsilon            float64 `yaml:"epsilon"`
	FunNum             uint32  `yaml:"fun_num"`
	SenderObtainResult bool    `yaml:"sender_obtain_result"`
}

// CircuitPSIParams holds Circuit-PSI's scheme parameters.
type CircuitPSIParams struct {
	Epsilon    float64 `yaml:"epsilon"`
	FunEpsilon float64 `yaml:"fun_epsilon"`
	FunNum     uint32  `yaml:"fun_num"`
	HintFunNum uint32  `yaml:"hint_fun_num"`
}

// Doc is the full hierarchical configuration document (spec §6).
type Doc struct {
	Network          Network          `yaml:"network"`
	Common           Common           `yaml:"common"`
	Data             Data             `yaml:"data"`
	ECDHParams       ECDHParams       `yaml:"ecdh_params"`
	KKRTPSIParams    KKRTPSIParams    `yaml:"kkrt_psi_params"`
	CircuitPSIParams CircuitPSIParams `yaml:"circuit_psi_params"`
}

// Default returns a Doc with the defaults a caller's parameters are
// merged over at scheme Init (spec §4.3: "Merge caller params over a
// built-in default").
func Default() Doc {
	return Doc{
		ECDHParams: ECDHParams{CurveID: 415, ObtainResult: true},
		KKRTPSIParams: KKRTPSIParams{
			Epsilon: 1.27,
			FunNum:  3,
		},
		CircuitPSIParams: CircuitPSIParams{
			Epsilon:    1.27,
			FunEpsilon: 1.27,
			FunNum:     3,
			HintFunNum: 3,
		},
	}
}

// Load reads and parses a YAML configuration document from path,
// merging it over Default().
func Load(path string) (Doc, error) {
	doc := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Doc{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return doc, nil
}
