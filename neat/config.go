package neat

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // "max", "min" or "mean"
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
	// Seed initializes the run's random stream. 0 selects a time-derived
	// seed, which makes the run non-reproducible.
	Seed int64 `ini:"seed"`
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	// --- Top-level Genome parameters ---
	NumInputs                        int     `ini:"num_inputs"`
	NumOutputs                       int     `ini:"num_outputs"`
	NumHidden                        int     `ini:"num_hidden"`
	FeedForward                      bool    `ini:"feed_forward"` // If true, cyclic topologies are disallowed
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
	ConnAddProb                      float64 `ini:"conn_add_prob"`
	ConnDeleteProb                   float64 `ini:"conn_delete_prob"`
	NodeAddProb                      float64 `ini:"node_add_prob"`
	NodeDeleteProb                   float64 `ini:"node_delete_prob"`
	SingleStructuralMutation         bool    `ini:"single_structural_mutation"`
	StructuralMutationSurer          string  `ini:"structural_mutation_surer"` // "true", "false" or "default"
	InitialConnection                string  `ini:"initial_connection"`
	// CrossoverDisableRate is the chance that a homologous connection which
	// is disabled in either parent is forced disabled in the child, applied
	// after per-attribute inheritance. It therefore compounds with the 50/50
	// enabled-flag inheritance into a higher effective disable probability.
	CrossoverDisableRate float64 `ini:"crossover_disable_rate"`

	// --- Node Gene parameters ---
	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	// --- Connection Gene parameters ---
	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	EnabledDefault        string  `ini:"enabled_default"`
	EnabledMutateRate     float64 `ini:"enabled_mutate_rate"`
	EnabledRateToTrueAdd  float64 `ini:"enabled_rate_to_true_add"`
	EnabledRateToFalseAdd float64 `ini:"enabled_rate_to_false_add"`

	// --- Calculated/Derived ---
	InputKeys  []int `ini:"-"` // input pin keys -1..-num_inputs
	OutputKeys []int `ini:"-"` // output node keys 0..num_outputs-1
	// NodeKeyIndex hands out hidden-node keys. It is shared by every genome
	// built from this config, so node keys are unique across the population.
	NodeKeyIndex int `ini:"-"`
	// InitialConnectionType is InitialConnection's canonical scheme name;
	// ConnectionFraction applies to the partial_* schemes.
	InitialConnectionType string  `ini:"-"`
	ConnectionFraction    float64 `ini:"-"`
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
	// RepresentativePolicy selects how a species re-elects its
	// representative after membership is finalized: "closest" keeps the
	// member nearest the previous representative, "central" picks the
	// member with the smallest total distance to its peers.
	RepresentativePolicy string `ini:"representative_policy"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	return loadConfigSource(filePath)
}

// LoadConfigData loads configuration parameters from INI text.
func LoadConfigData(data []byte) (*Config, error) {
	return loadConfigSource(data)
}

func loadConfigSource(source interface{}) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config := &Config{}

	// Map sections to structs
	if err := cfg.Section("NEAT").MapTo(&config.Neat); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := cfg.Section("DefaultGenome").MapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultGenome] section: %w", err)
	}
	if err := cfg.Section("DefaultReproduction").MapTo(&config.Reproduction); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultReproduction] section: %w", err)
	}
	if err := cfg.Section("DefaultSpeciesSet").MapTo(&config.SpeciesSet); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultSpeciesSet] section: %w", err)
	}
	if err := cfg.Section("DefaultStagnation").MapTo(&config.Stagnation); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultStagnation] section: %w", err)
	}

	// Re-read bool values directly; MapTo can mis-handle values that carried
	// inline comments.
	neatSection := cfg.Section("NEAT")
	if key, err := neatSection.GetKey("no_fitness_termination"); err == nil {
		config.Neat.NoFitnessTermination, _ = key.Bool()
	}
	if key, err := neatSection.GetKey("reset_on_extinction"); err == nil {
		config.Neat.ResetOnExtinction, _ = key.Bool()
	}
	genomeSection := cfg.Section("DefaultGenome")
	if key, err := genomeSection.GetKey("feed_forward"); err == nil {
		config.Genome.FeedForward, _ = key.Bool()
	}
	if key, err := genomeSection.GetKey("single_structural_mutation"); err == nil {
		config.Genome.SingleStructuralMutation, _ = key.Bool()
	}

	// Clean string values that may have carried inline comments.
	config.Genome.BiasInitType = cleanIniString(config.Genome.BiasInitType)
	config.Genome.ResponseInitType = cleanIniString(config.Genome.ResponseInitType)
	config.Genome.ActivationDefault = cleanIniString(config.Genome.ActivationDefault)
	config.Genome.AggregationDefault = cleanIniString(config.Genome.AggregationDefault)
	config.Genome.WeightInitType = cleanIniString(config.Genome.WeightInitType)
	config.Genome.EnabledDefault = cleanIniString(config.Genome.EnabledDefault)
	config.Genome.InitialConnection = cleanIniString(config.Genome.InitialConnection)
	config.Genome.StructuralMutationSurer = cleanIniString(config.Genome.StructuralMutationSurer)
	config.Neat.FitnessCriterion = cleanIniString(config.Neat.FitnessCriterion)
	config.Stagnation.SpeciesFitnessFunc = cleanIniString(config.Stagnation.SpeciesFitnessFunc)
	config.SpeciesSet.RepresentativePolicy = cleanIniString(config.SpeciesSet.RepresentativePolicy)
	for i, opt := range config.Genome.ActivationOptions {
		config.Genome.ActivationOptions[i] = strings.TrimSpace(opt)
	}
	for i, opt := range config.Genome.AggregationOptions {
		config.Genome.AggregationOptions[i] = strings.TrimSpace(opt)
	}

	applyDefaults(config, cfg)

	if err := finalizeGenomeConfig(&config.Genome); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults fills in values for parameters absent from the file.
func applyDefaults(config *Config, cfg *ini.File) {
	if config.Genome.BiasInitType == "" {
		config.Genome.BiasInitType = "gaussian"
	}
	if config.Genome.ResponseInitType == "" {
		config.Genome.ResponseInitType = "gaussian"
	}
	if config.Genome.WeightInitType == "" {
		config.Genome.WeightInitType = "gaussian"
	}
	if config.Genome.ActivationDefault == "" {
		config.Genome.ActivationDefault = "random"
	}
	if config.Genome.AggregationDefault == "" {
		config.Genome.AggregationDefault = "random"
	}
	if config.Genome.EnabledDefault == "" {
		config.Genome.EnabledDefault = "True"
	}
	if config.Genome.StructuralMutationSurer == "" {
		config.Genome.StructuralMutationSurer = "default"
	}
	if config.Genome.InitialConnection == "" {
		config.Genome.InitialConnection = "unconnected"
	}
	if !cfg.Section("DefaultGenome").HasKey("crossover_disable_rate") {
		config.Genome.CrossoverDisableRate = 0.75
	}
	if !cfg.Section("DefaultReproduction").HasKey("survival_threshold") {
		config.Reproduction.SurvivalThreshold = 0.2
	}
	if !cfg.Section("DefaultReproduction").HasKey("min_species_size") {
		config.Reproduction.MinSpeciesSize = 1
	}
	if config.Stagnation.SpeciesFitnessFunc == "" {
		config.Stagnation.SpeciesFitnessFunc = "mean"
	}
	if !cfg.Section("DefaultStagnation").HasKey("max_stagnation") {
		config.Stagnation.MaxStagnation = 15
	}
	if config.SpeciesSet.RepresentativePolicy == "" {
		config.SpeciesSet.RepresentativePolicy = "closest"
	}
}

// finalizeGenomeConfig derives the key layout and parses the composite
// initial_connection and structural_mutation_surer values.
func finalizeGenomeConfig(gc *GenomeConfig) error {
	gc.InputKeys = make([]int, gc.NumInputs)
	for i := 0; i < gc.NumInputs; i++ {
		gc.InputKeys[i] = -(i + 1)
	}
	gc.OutputKeys = make([]int, gc.NumOutputs)
	for i := 0; i < gc.NumOutputs; i++ {
		gc.OutputKeys[i] = i
	}
	// Hidden-node keys start after the output block.
	gc.NodeKeyIndex = gc.NumOutputs

	// initial_connection may carry a fraction: "partial_nodirect 0.5".
	fields := strings.Fields(gc.InitialConnection)
	if len(fields) == 0 {
		fields = []string{"unconnected"}
	}
	scheme := fields[0]
	switch scheme {
	case "fs_neat":
		scheme = "fs_neat_nohidden"
	case "full":
		scheme = "full_nodirect"
	case "partial":
		scheme = "partial_nodirect"
	}
	switch scheme {
	case "unconnected", "fs_neat_nohidden", "fs_neat_hidden", "full_nodirect", "full_direct":
		if len(fields) > 1 {
			return fmt.Errorf("config error: initial_connection %q does not take a fraction", gc.InitialConnection)
		}
	case "partial_nodirect", "partial_direct":
		if len(fields) != 2 {
			return fmt.Errorf("config error: initial_connection %q requires a fraction, e.g. %q", gc.InitialConnection, scheme+" 0.5")
		}
		fraction, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("config error: invalid initial_connection fraction %q: %w", fields[1], err)
		}
		if fraction < 0 || fraction > 1 {
			return fmt.Errorf("config error: initial_connection fraction must be between 0 and 1, got %v", fraction)
		}
		gc.ConnectionFraction = fraction
	default:
		return fmt.Errorf("config error: invalid initial_connection type %q", fields[0])
	}
	gc.InitialConnectionType = scheme

	switch strings.ToLower(gc.StructuralMutationSurer) {
	case "1", "yes", "true", "on":
		gc.StructuralMutationSurer = "true"
	case "0", "no", "false", "off":
		gc.StructuralMutationSurer = "false"
	case "default":
		gc.StructuralMutationSurer = "default"
	default:
		return fmt.Errorf("config error: invalid structural_mutation_surer %q", gc.StructuralMutationSurer)
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if !config.Neat.NoFitnessTermination {
		switch strings.ToLower(config.Neat.FitnessCriterion) {
		case "max", "min", "mean":
		default:
			return fmt.Errorf("config error: invalid fitness_criterion %q, must be one of 'max', 'min', 'mean'", config.Neat.FitnessCriterion)
		}
	}

	gc := &config.Genome
	if gc.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if gc.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if gc.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if gc.CompatibilityDisjointCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_disjoint_coefficient cannot be negative")
	}
	if gc.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_weight_coefficient cannot be negative")
	}
	for name, p := range map[string]float64{
		"conn_add_prob":          gc.ConnAddProb,
		"conn_delete_prob":       gc.ConnDeleteProb,
		"node_add_prob":          gc.NodeAddProb,
		"node_delete_prob":       gc.NodeDeleteProb,
		"crossover_disable_rate": gc.CrossoverDisableRate,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}

	// Attribute specs: init distributions, bounds and option lists.
	if err := gc.biasAttr().Validate("bias"); err != nil {
		return err
	}
	if err := gc.responseAttr().Validate("response"); err != nil {
		return err
	}
	if err := gc.weightAttr().Validate("weight"); err != nil {
		return err
	}
	if err := gc.enabledAttr().Validate("enabled"); err != nil {
		return err
	}
	if err := gc.activationAttr().Validate("activation"); err != nil {
		return err
	}
	if err := gc.aggregationAttr().Validate("aggregation"); err != nil {
		return err
	}
	if gc.BiasMaxValue < gc.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if gc.ResponseMaxValue < gc.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if gc.WeightMaxValue < gc.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}

	// Resolve every configured function name now so that a typo surfaces
	// before any generation runs.
	for _, name := range gc.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: activation_options: %w", err)
		}
	}
	for _, name := range gc.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: aggregation_options: %w", err)
		}
	}

	if config.Reproduction.SurvivalThreshold < 0 || config.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if config.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if config.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}

	if config.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	switch config.SpeciesSet.RepresentativePolicy {
	case "closest", "central":
	default:
		return fmt.Errorf("config error: invalid representative_policy %q, must be 'closest' or 'central'", config.SpeciesSet.RepresentativePolicy)
	}

	if config.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if config.Stagnation.SpeciesElitism < 0 {
		return fmt.Errorf("config error: species_elitism cannot be negative")
	}
	if _, ok := StatFunctions[strings.ToLower(config.Stagnation.SpeciesFitnessFunc)]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func %q", config.Stagnation.SpeciesFitnessFunc)
	}

	return nil
}

// GetNewNodeKey hands out the next hidden-node key.
func (gc *GenomeConfig) GetNewNodeKey() int {
	key := gc.NodeKeyIndex
	gc.NodeKeyIndex++
	return key
}

// isOutputKey reports whether key names an output node. Output keys occupy
// 0..NumOutputs-1 by construction; input pins are negative.
func (gc *GenomeConfig) isOutputKey(key int) bool {
	return key >= 0 && key < gc.NumOutputs
}

// checkStructuralMutationSurer resolves the three-valued setting: "default"
// follows single_structural_mutation.
func (gc *GenomeConfig) checkStructuralMutationSurer() bool {
	switch gc.StructuralMutationSurer {
	case "true":
		return true
	case "false":
		return false
	default:
		return gc.SingleStructuralMutation
	}
}

// Attribute spec accessors assemble the per-attribute parameters into the
// attribute model's types. They are built on demand so that a config
// restored from a checkpoint needs no fix-up pass.

func (gc *GenomeConfig) biasAttr() FloatAttributeSpec {
	return FloatAttributeSpec{
		InitMean:    gc.BiasInitMean,
		InitStdev:   gc.BiasInitStdev,
		InitType:    gc.BiasInitType,
		MinValue:    gc.BiasMinValue,
		MaxValue:    gc.BiasMaxValue,
		MutatePower: gc.BiasMutatePower,
		MutateRate:  gc.BiasMutateRate,
		ReplaceRate: gc.BiasReplaceRate,
	}
}

func (gc *GenomeConfig) responseAttr() FloatAttributeSpec {
	return FloatAttributeSpec{
		InitMean:    gc.ResponseInitMean,
		InitStdev:   gc.ResponseInitStdev,
		InitType:    gc.ResponseInitType,
		MinValue:    gc.ResponseMinValue,
		MaxValue:    gc.ResponseMaxValue,
		MutatePower: gc.ResponseMutatePower,
		MutateRate:  gc.ResponseMutateRate,
		ReplaceRate: gc.ResponseReplaceRate,
	}
}

func (gc *GenomeConfig) weightAttr() FloatAttributeSpec {
	return FloatAttributeSpec{
		InitMean:    gc.WeightInitMean,
		InitStdev:   gc.WeightInitStdev,
		InitType:    gc.WeightInitType,
		MinValue:    gc.WeightMinValue,
		MaxValue:    gc.WeightMaxValue,
		MutatePower: gc.WeightMutatePower,
		MutateRate:  gc.WeightMutateRate,
		ReplaceRate: gc.WeightReplaceRate,
	}
}

func (gc *GenomeConfig) enabledAttr() BoolAttributeSpec {
	return BoolAttributeSpec{
		Default:        gc.EnabledDefault,
		MutateRate:     gc.EnabledMutateRate,
		RateToTrueAdd:  gc.EnabledRateToTrueAdd,
		RateToFalseAdd: gc.EnabledRateToFalseAdd,
	}
}

func (gc *GenomeConfig) activationAttr() StringAttributeSpec {
	return StringAttributeSpec{
		Default:    gc.ActivationDefault,
		MutateRate: gc.ActivationMutateRate,
		Options:    gc.ActivationOptions,
	}
}

func (gc *GenomeConfig) aggregationAttr() StringAttributeSpec {
	return StringAttributeSpec{
		Default:    gc.AggregationDefault,
		MutateRate: gc.AggregationMutateRate,
		Options:    gc.AggregationOptions,
	}
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
