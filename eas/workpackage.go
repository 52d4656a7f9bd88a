package eas

import "encoding/json"

// ─── Enumerations ─────────────────────────────────────────────────────────────
//
// Enum values are the server's fixed string tokens; they serialize as-is.

// SwitchClass identifies the kind of switching equipment a meter placement
// rule matches.
type SwitchClass string

const (
	SwitchClassBreaker         SwitchClass = "BREAKER"
	SwitchClassDisconnector    SwitchClass = "DISCONNECTOR"
	SwitchClassFuse            SwitchClass = "FUSE"
	SwitchClassJumper          SwitchClass = "JUMPER"
	SwitchClassLoadBreakSwitch SwitchClass = "LOAD_BREAK_SWITCH"
	SwitchClassRecloser        SwitchClass = "RECLOSER"
)

// SolveMode selects how the solver steps through the load period.
type SolveMode string

const (
	SolveModeYearly SolveMode = "YEARLY"
	SolveModeDaily  SolveMode = "DAILY"
)

// LoadPlacement selects where generated loads attach to the model.
type LoadPlacement string

const (
	LoadPlacementPerUsagePoint     LoadPlacement = "PER_USAGE_POINT"
	LoadPlacementPerEnergyConsumer LoadPlacement = "PER_ENERGY_CONSUMER"
)

// FeederScenarioAllocationStrategy selects how scenario forecasts are
// allocated onto a feeder's existing load.
type FeederScenarioAllocationStrategy string

const (
	FeederScenarioAllocationStrategyAdditive FeederScenarioAllocationStrategy = "ADDITIVE"
	FeederScenarioAllocationStrategyScaling  FeederScenarioAllocationStrategy = "SCALING"
)

// WriterType selects the backend the result processor writes to.
type WriterType string

const (
	WriterTypePostgres WriterType = "POSTGRES"
	WriterTypeParquet  WriterType = "PARQUET"
)

// Order is a sort direction in list-query sort criteria.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// InterventionClass identifies the kind of network intervention a work
// package evaluates.
type InterventionClass string

const (
	InterventionClassTransformerUpgrade       InterventionClass = "TRANSFORMER_UPGRADE"
	InterventionClassConductorUpgrade         InterventionClass = "CONDUCTOR_UPGRADE"
	InterventionClassBatteryStorage           InterventionClass = "BATTERY_STORAGE"
	InterventionClassDynamicOperatingEnvelope InterventionClass = "DYNAMIC_OPERATING_ENVELOPE"
)

// CandidateGenerationType selects how intervention candidates are produced.
type CandidateGenerationType string

const (
	CandidateGenerationTypeAllCandidates    CandidateGenerationType = "ALL_CANDIDATES"
	CandidateGenerationTypeConstraintDriven CandidateGenerationType = "CONSTRAINT_DRIVEN"
)

// ─── Model generation ─────────────────────────────────────────────────────────

// SwitchMeterPlacementConfig places virtual meters at switches of a class
// whose names match a pattern.
type SwitchMeterPlacementConfig struct {
	MeterSwitchClass *SwitchClass `json:"meterSwitchClass"`
	NamePattern      *string      `json:"namePattern"`
}

// MeterPlacementConfig controls where virtual meters are added to the
// generated model.
type MeterPlacementConfig struct {
	FeederHead                  *bool                        `json:"feederHead"`
	DistTransformers            *bool                        `json:"distTransformers"`
	SwitchMeterPlacementConfigs []SwitchMeterPlacementConfig `json:"switchMeterPlacementConfigs"`
	EnergyConsumerMeterGroup    *string                      `json:"energyConsumerMeterGroup"`
}

// ModelConfig holds every tunable of server-side model generation. A nil
// field means "use the server's default", which is why every leaf is a
// pointer and nils are serialized as explicit nulls rather than omitted.
// UseSpanLevelThreshold is the one exception: the server schema carries it
// as a plain boolean, never null.
type ModelConfig struct {
	VmPu                                *float64                          `json:"vmPu"`
	LoadVMinPu                          *float64                          `json:"loadVMinPu"`
	LoadVMaxPu                          *float64                          `json:"loadVMaxPu"`
	GenVMinPu                           *float64                          `json:"genVMinPu"`
	GenVMaxPu                           *float64                          `json:"genVMaxPu"`
	LoadModel                           *int                              `json:"loadModel"`
	CollapseSWER                        *bool                             `json:"collapseSWER"`
	Calibration                         *bool                             `json:"calibration"`
	PFactorBaseExports                  *float64                          `json:"pFactorBaseExports"`
	PFactorBaseImports                  *float64                          `json:"pFactorBaseImports"`
	PFactorForecastPv                   *float64                          `json:"pFactorForecastPv"`
	FixSinglePhaseLoads                 *bool                             `json:"fixSinglePhaseLoads"`
	MaxSinglePhaseLoad                  *float64                          `json:"maxSinglePhaseLoad"`
	FixOverloadingConsumers             *bool                             `json:"fixOverloadingConsumers"`
	MaxLoadTxRatio                      *float64                          `json:"maxLoadTxRatio"`
	MaxGenTxRatio                       *float64                          `json:"maxGenTxRatio"`
	FixUndersizedServiceLines           *bool                             `json:"fixUndersizedServiceLines"`
	MaxLoadServiceLineRatio             *float64                          `json:"maxLoadServiceLineRatio"`
	MaxLoadLvLineRatio                  *float64                          `json:"maxLoadLvLineRatio"`
	SimplifyNetwork                     *bool                             `json:"simplifyNetwork"`
	CollapseLvNetworks                  *bool                             `json:"collapseLvNetworks"`
	CollapseNegligibleImpedances        *bool                             `json:"collapseNegligibleImpedances"`
	CombineCommonImpedances             *bool                             `json:"combineCommonImpedances"`
	FeederScenarioAllocationStrategy    *FeederScenarioAllocationStrategy `json:"feederScenarioAllocationStrategy"`
	ClosedLoopVRegEnabled               *bool                             `json:"closedLoopVRegEnabled"`
	ClosedLoopVRegReplaceAll            *bool                             `json:"closedLoopVRegReplaceAll"`
	ClosedLoopVRegSetPoint              *float64                          `json:"closedLoopVRegSetPoint"`
	ClosedLoopVBand                     *float64                          `json:"closedLoopVBand"`
	ClosedLoopTimeDelay                 *int                              `json:"closedLoopTimeDelay"`
	ClosedLoopVLimit                    *float64                          `json:"closedLoopVLimit"`
	DefaultTapChangerTimeDelay          *int                              `json:"defaultTapChangerTimeDelay"`
	DefaultTapChangerSetPointPu         *float64                          `json:"defaultTapChangerSetPointPu"`
	DefaultTapChangerBand               *float64                          `json:"defaultTapChangerBand"`
	SplitPhaseDefaultLoadLossPercentage *float64                          `json:"splitPhaseDefaultLoadLossPercentage"`
	SplitPhaseLVKV                      *float64                          `json:"splitPhaseLVKV"`
	SwerVoltageToLineVoltage            [][]float64                       `json:"swerVoltageToLineVoltage"`
	LoadPlacement                       *LoadPlacement                    `json:"loadPlacement"`
	LoadIntervalLengthHours             *float64                          `json:"loadIntervalLengthHours"`
	MeterPlacementConfig                *MeterPlacementConfig             `json:"meterPlacementConfig"`
	Seed                                *int                              `json:"seed"`
	DefaultLoadWatts                    []float64                         `json:"defaultLoadWatts"`
	DefaultGenWatts                     []float64                         `json:"defaultGenWatts"`
	DefaultLoadVar                      []float64                         `json:"defaultLoadVar"`
	DefaultGenVar                       []float64                         `json:"defaultGenVar"`
	TransformerTapSettings              *string                           `json:"transformerTapSettings"`
	CtPrimScalingFactor                 *float64                          `json:"ctPrimScalingFactor"`
	UseSpanLevelThreshold               bool                              `json:"useSpanLevelThreshold"`
	RatingThreshold                     *float64                          `json:"ratingThreshold"`
	SimplifyPLSIThreshold               *float64                          `json:"simplifyPLSIThreshold"`
	EmergAmpScaling                     *float64                          `json:"emergAmpScaling"`
}

// SolveConfig holds the OpenDSS solver tunables.
type SolveConfig struct {
	NormVMinPu      *float64   `json:"normVMinPu"`
	NormVMaxPu      *float64   `json:"normVMaxPu"`
	EmergVMinPu     *float64   `json:"emergVMinPu"`
	EmergVMaxPu     *float64   `json:"emergVMaxPu"`
	BaseFrequency   *int       `json:"baseFrequency"`
	VoltageBases    []float64  `json:"voltageBases"`
	MaxIter         *int       `json:"maxIter"`
	MaxControlIter  *int       `json:"maxControlIter"`
	Mode            *SolveMode `json:"mode"`
	StepSizeMinutes *float64   `json:"stepSizeMinutes"`
}

// RawResultsConfig selects which raw result streams a run produces.
type RawResultsConfig struct {
	EnergyMeterVoltagesRaw *bool `json:"energyMeterVoltagesRaw"`
	EnergyMetersRaw        *bool `json:"energyMetersRaw"`
	ResultsPerMeter        *bool `json:"resultsPerMeter"`
	OverloadsRaw           *bool `json:"overloadsRaw"`
	VoltageExceptionsRaw   *bool `json:"voltageExceptionsRaw"`
}

// NodeLevelResultsConfig selects per-node quantities collected during a run.
type NodeLevelResultsConfig struct {
	CollectVoltage            *bool    `json:"collectVoltage"`
	CollectCurrent            *bool    `json:"collectCurrent"`
	CollectPower              *bool    `json:"collectPower"`
	MridsToCollect            []string `json:"mridsToCollect"`
	CollectAllSwitches        *bool    `json:"collectAllSwitches"`
	CollectAllTransformers    *bool    `json:"collectAllTransformers"`
	CollectAllConductors      *bool    `json:"collectAllConductors"`
	CollectAllEnergyConsumers *bool    `json:"collectAllEnergyConsumers"`
}

// GeneratorConfig groups the model-generation, solve and result-collection
// settings of a run. Each section is independently optional.
type GeneratorConfig struct {
	Model            *ModelConfig            `json:"model"`
	Solve            *SolveConfig            `json:"solve"`
	RawResults       *RawResultsConfig       `json:"rawResults"`
	NodeLevelResults *NodeLevelResultsConfig `json:"nodeLevelResults"`
}

// ─── Result processing ────────────────────────────────────────────────────────

// StoredResultsConfig selects which raw result streams are persisted
// server-side after a run.
type StoredResultsConfig struct {
	EnergyMetersRaw        *bool `json:"energyMetersRaw"`
	EnergyMeterVoltagesRaw *bool `json:"energyMeterVoltagesRaw"`
	OverloadsRaw           *bool `json:"overloadsRaw"`
	VoltageExceptionsRaw   *bool `json:"voltageExceptionsRaw"`
}

// MetricsResultsConfig selects which derived metrics are calculated.
type MetricsResultsConfig struct {
	CalculatePerformanceMetrics *bool `json:"calculatePerformanceMetrics"`
}

// EnhancedMetricsConfig selects the extended metric families written by the
// result processor.
type EnhancedMetricsConfig struct {
	PopulateEnhancedMetrics        *bool `json:"populateEnhancedMetrics"`
	PopulateEnhancedMetricsProfile *bool `json:"populateEnhancedMetricsProfile"`
	PopulateDurationCurves         *bool `json:"populateDurationCurves"`
	PopulateConstraints            *bool `json:"populateConstraints"`
	PopulateWeeklyReports          *bool `json:"populateWeeklyReports"`
	CalculateNormalForLoadThermal  *bool `json:"calculateNormalForLoadThermal"`
	CalculateEmergForLoadThermal   *bool `json:"calculateEmergForLoadThermal"`
	CalculateNormalForGenThermal   *bool `json:"calculateNormalForGenThermal"`
	CalculateEmergForGenThermal    *bool `json:"calculateEmergForGenThermal"`
	CalculateCO2                   *bool `json:"calculateCO2"`
}

// WriterOutputConfig tunes the output side of the result writer.
type WriterOutputConfig struct {
	EnhancedMetricsConfig *EnhancedMetricsConfig `json:"enhancedMetricsConfig"`
}

// WriterConfig selects where and how processed results are written.
type WriterConfig struct {
	WriterType         *WriterType         `json:"writerType"`
	OutputWriterConfig *WriterOutputConfig `json:"outputWriterConfig"`
}

// ResultProcessorConfig controls what is persisted and calculated
// server-side once a run's raw results are in.
type ResultProcessorConfig struct {
	StoredResults *StoredResultsConfig  `json:"storedResults"`
	Metrics       *MetricsResultsConfig `json:"metrics"`
	WriterConfig  *WriterConfig         `json:"writerConfig"`
}

// ─── Interventions ────────────────────────────────────────────────────────────

// CandidateGenerationConfig tunes how intervention candidates are produced.
type CandidateGenerationConfig struct {
	Type          CandidateGenerationType `json:"type"`
	MaxCandidates *int                    `json:"maxCandidates"`
}

// InterventionConfig asks a work package to evaluate a class of network
// intervention alongside the base study.
type InterventionConfig struct {
	InterventionClass   InterventionClass          `json:"interventionClass"`
	CandidateGeneration *CandidateGenerationConfig `json:"candidateGeneration"`
}

// ─── Scenario / feeder / year selection ───────────────────────────────────────

// SyfConfig is the scenario/feeder/year selection of a work package: either
// a uniform ForecastConfig or a per-feeder FeederConfigs.
type SyfConfig interface {
	isSyfConfig()
}

// ForecastConfig runs every listed feeder against the same years, scenarios
// and load time.
type ForecastConfig struct {
	Feeders   []string
	Years     []int
	Scenarios []string
	LoadTime  LoadTime
}

func (ForecastConfig) isSyfConfig() {}

func (c ForecastConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Feeders   []string        `json:"feeders"`
		Years     []int           `json:"years"`
		Scenarios []string        `json:"scenarios"`
		LoadTime  loadTimeSection `json:"loadTime"`
	}{c.Feeders, c.Years, c.Scenarios, newLoadTimeSection(c.LoadTime)})
}

// FeederConfig selects years, scenarios and a load time for one feeder.
type FeederConfig struct {
	Feeder    string
	Years     []int
	Scenarios []string
	LoadTime  LoadTime
}

func (c FeederConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Feeder    string          `json:"feeder"`
		Years     []int           `json:"years"`
		Scenarios []string        `json:"scenarios"`
		LoadTime  loadTimeSection `json:"loadTime"`
	}{c.Feeder, c.Years, c.Scenarios, newLoadTimeSection(c.LoadTime)})
}

// FeederConfigs selects a distinct configuration per feeder.
type FeederConfigs struct {
	Configs []FeederConfig
}

func (FeederConfigs) isSyfConfig() {}

// ─── Work package ─────────────────────────────────────────────────────────────

// WorkPackageConfig describes a hosting capacity work package: what to
// simulate (Syf), how to generate and solve models (GeneratorConfig), and
// what to keep (ResultProcessorConfig).
type WorkPackageConfig struct {
	Name                       string
	Syf                        SyfConfig
	QualityAssuranceProcessing *bool
	GeneratorConfig            *GeneratorConfig
	ResultProcessorConfig      *ResultProcessorConfig
	Intervention               *InterventionConfig
}

// workPackageInput is the WorkPackageInput wire shape. Exactly one of the
// two selection branches is present; the remaining optional sections carry
// explicit nulls when unset.
type workPackageInput struct {
	ForecastConfig             *ForecastConfig        `json:"forecastConfig,omitzero"`
	FeederConfigs              []FeederConfig         `json:"feederConfigs,omitzero"`
	QualityAssuranceProcessing *bool                  `json:"qualityAssuranceProcessing"`
	GeneratorConfig            *GeneratorConfig       `json:"generatorConfig"`
	ResultProcessorConfig      *ResultProcessorConfig `json:"resultProcessorConfig"`
	Intervention               *InterventionConfig    `json:"intervention"`
}

func newWorkPackageInput(config WorkPackageConfig) workPackageInput {
	input := workPackageInput{
		QualityAssuranceProcessing: config.QualityAssuranceProcessing,
		GeneratorConfig:            config.GeneratorConfig,
		ResultProcessorConfig:      config.ResultProcessorConfig,
		Intervention:               config.Intervention,
	}
	switch syf := config.Syf.(type) {
	case ForecastConfig:
		input.ForecastConfig = &syf
	case *ForecastConfig:
		input.ForecastConfig = syf
	case FeederConfigs:
		input.FeederConfigs = syf.Configs
	case *FeederConfigs:
		input.FeederConfigs = syf.Configs
	}
	return input
}

// ─── Progress ─────────────────────────────────────────────────────────────────

// WorkPackageProgress is the server's view of one in-flight work package.
// The stage fields are presence lists: each names the work items currently
// sitting in that stage, not a boolean flag.
type WorkPackageProgress struct {
	ID                string   `json:"id"`
	ProgressPercent   int      `json:"progressPercent"`
	Pending           []string `json:"pending"`
	Generation        []string `json:"generation"`
	Execution         []string `json:"execution"`
	ResultProcessing  []string `json:"resultProcessing"`
	FailureProcessing []string `json:"failureProcessing"`
	Complete          []string `json:"complete"`
}

// WorkPackagesProgress is the full progress report: names of queued work
// packages plus the detailed state of running ones. It is rebuilt from the
// server on every poll; nothing is cached client-side.
type WorkPackagesProgress struct {
	Pending    []string              `json:"pending"`
	InProgress []WorkPackageProgress `json:"inProgress"`
}

// ─── Calibration ──────────────────────────────────────────────────────────────

// CalibrationRun is the read-only projection of a calibration run.
type CalibrationRun struct {
	ID                           string          `json:"id"`
	Name                         string          `json:"name"`
	WorkflowID                   string          `json:"workflowId"`
	RunID                        string          `json:"runId"`
	CalibrationTimeLocal         *LocalDateTime  `json:"calibrationTimeLocal"`
	StartAt                      *LocalDateTime  `json:"startAt"`
	CompletedAt                  *LocalDateTime  `json:"completedAt"`
	Status                       string          `json:"status"`
	Feeders                      []string        `json:"feeders"`
	CalibrationWorkPackageConfig json.RawMessage `json:"calibrationWorkPackageConfig"`
}
