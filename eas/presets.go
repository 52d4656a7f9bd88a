package eas

// Preset result configurations. Each function returns a fresh value so
// callers can tweak a preset without affecting later calls.

// StoredResultsNone persists no raw result streams.
func StoredResultsNone() *StoredResultsConfig {
	return &StoredResultsConfig{
		EnergyMetersRaw:        Bool(false),
		EnergyMeterVoltagesRaw: Bool(false),
		OverloadsRaw:           Bool(false),
		VoltageExceptionsRaw:   Bool(false),
	}
}

// StoredResultsAll persists every raw result stream.
func StoredResultsAll() *StoredResultsConfig {
	return &StoredResultsConfig{
		EnergyMetersRaw:        Bool(true),
		EnergyMeterVoltagesRaw: Bool(true),
		OverloadsRaw:           Bool(true),
		VoltageExceptionsRaw:   Bool(true),
	}
}

// RawResultsAll produces every raw result stream, per meter.
func RawResultsAll() *RawResultsConfig {
	return &RawResultsConfig{
		EnergyMetersRaw:        Bool(true),
		EnergyMeterVoltagesRaw: Bool(true),
		ResultsPerMeter:        Bool(true),
		OverloadsRaw:           Bool(true),
		VoltageExceptionsRaw:   Bool(true),
	}
}

// RawResultsStandard matches RawResultsAll; kept as a distinct preset the
// server may diverge from in future schema versions.
func RawResultsStandard() *RawResultsConfig {
	return RawResultsAll()
}

// RawResultsBasic produces no raw result streams; the server still emits a
// per-meter summary.
func RawResultsBasic() *RawResultsConfig {
	return &RawResultsConfig{}
}

// MetricsPerformance enables performance metric calculation.
func MetricsPerformance() *MetricsResultsConfig {
	return &MetricsResultsConfig{CalculatePerformanceMetrics: Bool(true)}
}

// DefaultResultProcessorConfig stores nothing, calculates performance
// metrics, and keeps only energy-meter raw streams in flight.
func DefaultResultProcessorConfig() *ResultProcessorConfig {
	return &ResultProcessorConfig{
		StoredResults: StoredResultsNone(),
		Metrics:       MetricsPerformance(),
	}
}

// StandardResultProcessorConfig stores overload and voltage-exception
// streams and calculates performance metrics.
func StandardResultProcessorConfig() *ResultProcessorConfig {
	return &ResultProcessorConfig{
		StoredResults: &StoredResultsConfig{
			OverloadsRaw:         Bool(true),
			VoltageExceptionsRaw: Bool(true),
		},
		Metrics: MetricsPerformance(),
	}
}

// BasicResultProcessorConfig stores nothing and calculates performance
// metrics only.
func BasicResultProcessorConfig() *ResultProcessorConfig {
	return &ResultProcessorConfig{
		StoredResults: StoredResultsNone(),
		Metrics:       MetricsPerformance(),
	}
}
